package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/redmonkez12/natours-api/internal/seed"
)

// RunAdminForm asks for whatever in is missing.
func RunAdminForm(in *AdminInput) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("Jonas Schmedtmann").
				Value(&in.Name).
				Validate(required("name")),

			huh.NewInput().
				Title("Email").
				Placeholder("admin@natours.io").
				Value(&in.Email).
				Validate(validEmail),

			huh.NewInput().
				Title("Password").
				Description("At least 8 characters").
				EchoMode(huh.EchoModePassword).
				Value(&in.Password).
				Validate(minLength(8)),
		),
	).WithTheme(huh.ThemeCatppuccin())

	if err := form.Run(); err != nil {
		return err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	return nil
}

// Confirm asks a yes/no question, defaulting to no.
func Confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(huh.ThemeCatppuccin()).Run()
	return ok, err
}

// PrintCounts prints the per-collection totals of an import or purge.
func PrintCounts(title string, c seed.Counts) {
	fmt.Println(headingStyle.Render(title))
	row := func(label string, n int64) {
		fmt.Printf("  %s %d\n", countStyle.Render(label), n)
	}
	row("Tours", c.Tours)
	row("Users", c.Users)
	row("Reviews", c.Reviews)
	if c.Bookings > 0 {
		row("Bookings", c.Bookings)
	}
	fmt.Println()
}

func PrintSuccess(msg string) {
	fmt.Println(successStyle.Render(msg))
}

func PrintHint(msg string) {
	fmt.Println(hintStyle.Render(msg))
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Println(errorStyle.Render("Error: " + msg))
}
