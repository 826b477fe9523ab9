//go:build darwin

package osutils

/*
#cgo LDFLAGS: -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>

int isTrusted() {
    return AXIsProcessTrusted() ? 1 : 0;
}
*/
import "C"

// IsTrusted reports whether the process has been granted Accessibility
// access, which both the event tap and synthetic clicks require.
func IsTrusted() bool {
	return C.isTrusted() == 1
}

func platformWarnings() []string {
	if IsTrusted() {
		return nil
	}
	return []string{"Accessibility access not granted: add this program under System Settings > Privacy & Security > Accessibility and Input Monitoring"}
}
