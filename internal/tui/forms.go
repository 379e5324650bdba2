package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

const maxTags = 8

// NewReviewForm asks for a rating and tags after a session ends
func NewReviewForm(fm *reviewForm) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("How did it go?").
				Options(
					huh.NewOption("Skip", 0),
					huh.NewOption("1 - rough", 1),
					huh.NewOption("2", 2),
					huh.NewOption("3 - okay", 3),
					huh.NewOption("4", 4),
					huh.NewOption("5 - great", 5),
				).
				Value(&fm.rating),
			huh.NewInput().
				Title("Tags").
				Description("Comma separated, optional").
				Value(&fm.tags).
				Validate(func(s string) error {
					if n := len(splitTags(s)); n > maxTags {
						return fmt.Errorf("at most %d tags", maxTags)
					}
					if strings.ContainsAny(s, "\n\t") {
						return fmt.Errorf("tags must be on one line")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())
}
