// Package mcp exposes folding-range computation as MCP tools.
//
// The server uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and builds a short-lived controller per call from a services.Registry, so
// tools see the same providers, language rules and limits as the HTTP
// service. Tools:
//
//   - folding_ranges: fold regions of a text
//   - folding_hidden: hidden lines after folding lines, a level or everything
//   - tool_search: find tools by name, description or keyword
package mcp
