package ui

import (
	"fmt"
	"io"
	"sort"

	"autokeybind/internal/profile"
)

// Lister is the read side of the profile store.
type Lister interface {
	Active() string
	Profiles() []string
	Bindings(name string) (map[string]profile.Binding, error)
}

// PrintProfiles writes every profile and its bindings to w, marking the
// active one.
func PrintProfiles(w io.Writer, l Lister) {
	active := l.Active()
	for _, name := range l.Profiles() {
		marker := "  "
		title := name
		if name == active {
			marker = SelectedStyle.Render("* ")
			title = TitleStyle.Render(name)
		}
		fmt.Fprintf(w, "%s%s\n", marker, title)

		binds, err := l.Bindings(name)
		if err != nil || len(binds) == 0 {
			fmt.Fprintf(w, "      %s\n", Muted("no bindings"))
			continue
		}
		keys := make([]string, 0, len(binds))
		for k := range binds {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b := binds[k]
			fmt.Fprintf(w, "      %s  %s %s\n", ComboStyle.Render(k), b.Kind, Muted(b.Coords.String()))
		}
	}
}
