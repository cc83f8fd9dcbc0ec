// Command prizmd is the local-first agent workspace server: it mediates
// between chat/editor clients and LLM providers over a local HTTP/WebSocket
// gateway. See cmd/prizmd for the command tree.
package main

import "github.com/prizm-dev/prizm/cmd/prizmd"

func main() {
	prizmd.Execute()
}
