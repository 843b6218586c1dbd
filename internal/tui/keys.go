package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Select   key.Binding
	Back     key.Binding
	Refresh  key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Sort     key.Binding
	Search   key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		NextPage: key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n", "next page")),
		PrevPage: key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p", "prev page")),
		Sort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle sort")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
