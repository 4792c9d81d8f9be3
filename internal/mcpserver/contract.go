package mcpserver

// MarkerContract describes the metadata conventions the extractor reads from
// notebook sources. LLM consumers should follow it when authoring notebooks.
const MarkerContract = `# nbsite Notebook Metadata Contract

Notebooks live directly in the notebooks directory (no sub-folders) and end in
` + "`.py`" + ` (marimo) or ` + "`.md`" + ` (Markdown notebook).

## Python notebooks: marker comments

` + "```" + `python
# Title: Normal Distribution
# Description: Symmetric, bell-shaped, *continuous*
# Tags: continuous, symmetric
# Date: 2025-05-07

import marimo
` + "```" + `

## Rules

1. A marker is ` + "`#`" + `, optional spaces, the marker word, a colon, then the value to
   the end of the line. It may appear anywhere in the file.
2. Marker words are case-sensitive: ` + "`Title`" + `, ` + "`Description`" + `, ` + "`Tags`" + `, ` + "`Date`" + `.
3. When a marker occurs more than once the first occurrence wins.
4. ` + "`Tags`" + ` is comma-separated; whitespace around each tag is trimmed and empty
   tags are dropped. Case and duplicates are preserved.
5. Every marker is optional. Without ` + "`Title`" + ` the title is derived from the file
   name (` + "`normal_dist.py`" + ` becomes "Normal Dist").
6. ` + "`Description`" + ` is rendered as Markdown on the index page.
7. ` + "`Date`" + ` is free text shown as-is; the file modification time is shown when absent.

## Markdown notebooks: front matter

` + "```" + `markdown
---
title: Beta Distribution
description: Defined on [0, 1]
tags: [continuous, bounded]
date: 2025-05-07
---
` + "```" + `

Front matter keys take precedence; any key left empty falls back to the marker
comments above. ` + "`tags`" + ` may be a YAML list or a comma-separated string.

## Output

Each notebook ` + "`<stem>.<ext>`" + ` produces ` + "`notebooks/<stem>.html`" + ` (interactive),
optionally ` + "`notebooks/static/<stem>.html`" + ` and a source copy, plus the detail page
` + "`view_<stem>.html`" + `. Two notebooks sharing a stem fail the build.
`
