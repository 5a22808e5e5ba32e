package ui

// MenuHint is a key shortcut shown in the menu.
type MenuHint struct {
	Key         string
	Description string
}
