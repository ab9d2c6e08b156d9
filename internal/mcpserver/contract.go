package mcpserver

// ReferenceFormatContract describes the canonical process reference
// grammar for tool consumers.
const ReferenceFormatContract = `# Process Reference Format

A canonical process reference is a lowercase 36-character UUID-shaped
token:

` + "```" + `
xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx     (hex digits only)
` + "```" + `

## Accepted inputs

1. The bare identifier, any letter case, with at most one trailing slash.
2. Any URL whose final path segment is such an identifier, e.g.
   ` + "`" + `https://www.fabublox.com/process-editor/<id>/` + "`" + `.

Anything else does not normalize; the tool reports ` + "`" + `source_kind: invalid` + "`" + `
with an empty canonical ID.

## Rules

- The canonical form is lowercased and has no trailing slash.
- Normalization is idempotent: feeding a canonical ID back in returns it
  unchanged.
- The editor URL for a canonical ID is
  ` + "`" + `https://www.fabublox.com/process-editor/<id>` + "`" + `.
`
