package devserver

import (
	"context"
	"runtime"

	"github.com/yaklabco/stipple/internal/env"
	"github.com/yaklabco/stipple/internal/sh"
)

// BrowserCommand returns the platform command that opens url.
func BrowserCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}

// OpenBrowser opens url in the default browser. It does nothing on CI.
func OpenBrowser(ctx context.Context, url string) error {
	if env.InCI() {
		return nil
	}
	cmd, args := BrowserCommand(runtime.GOOS, url)
	return sh.Run(ctx, nil, cmd, args...)
}
