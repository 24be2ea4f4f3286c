// Package browser opens URLs in the user's default browser.
package browser

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/skratchdot/open-golang/open"
)

// IsAvailable reports whether a browser can likely be opened on this
// host. Headless servers and SSH sessions usually cannot.
func IsAvailable() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	default:
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return false
		}
		_, err := exec.LookPath("xdg-open")
		return err == nil
	}
}

// OpenURL opens url in the default browser.
func OpenURL(url string) error {
	return open.Run(url)
}
