// Command caddy is a Caddy build with the avatar_proxy handler compiled in.
// Usage: go run ./cmd/caddy run --config Caddyfile
package main

import (
	caddycmd "github.com/caddyserver/caddy/v2/cmd"

	_ "github.com/caddyserver/caddy/v2/modules/standard"

	_ "github.com/philiph/caddy-avatar-proxy"
)

func main() {
	caddycmd.Main()
}
