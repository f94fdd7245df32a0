package commands

import (
	"fmt"

	"github.com/inkpress/scribe/internal/scaffold"
)

// CreateCmd implements the 'create' command.
type CreateCmd struct {
	Dir         string `arg:"" help:"Directory to create the project in"`
	Title       string `help:"Site title" default:"Scribe"`
	Description string `help:"Site description"`
	Author      string `help:"Site author"`
	NoGit       bool   `name:"no-git" help:"Skip git repository initialization"`
}

func (c *CreateCmd) Run(_ *Global, _ *CLI) error {
	if err := scaffold.Create(scaffold.Options{
		Dir:         c.Dir,
		Title:       c.Title,
		Description: c.Description,
		Author:      c.Author,
		NoGit:       c.NoGit,
	}); err != nil {
		return err
	}

	fmt.Printf("Project created in %s\n", c.Dir)
	fmt.Println("Next steps:")
	fmt.Printf("  cd %s\n", c.Dir)
	fmt.Println("  scribe generate")
	fmt.Println("  scribe serve --watch")
	return nil
}
