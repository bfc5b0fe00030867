package main

import (
	"errors"
	"os"

	"github.com/charmbracelet/huh"
)

type promptValues struct {
	name      string
	category  string
	imagePath string
}

// promptListing asks for the listing fields in the terminal, prefilled with
// whatever was given on the command line.
func promptListing(values *promptValues) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("required").
				Value(&values.name),
			huh.NewInput().
				Title("Category").
				Value(&values.category),
			huh.NewInput().
				Title("Image").
				Description("Path to the item photo").
				Value(&values.imagePath).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					if _, err := os.Stat(s); err != nil {
						return errors.New("file not found")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeBase16())

	return form.Run()
}
