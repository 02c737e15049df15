package screen

import (
	"fmt"
	"io"

	"github.com/kjstillabower/weatherview/internal/models"
)

// LoadingLabel is shown while no valid snapshot exists.
const LoadingLabel = "Loading..."

// Item is one rendered list entry.
type Item struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Temperature string `json:"temperature"`
}

// View is the rendered screen: either the loading placeholder or a single item,
// plus the pull-to-refresh indicator.
type View struct {
	Loading      bool   `json:"loading"`
	LoadingLabel string `json:"loadingLabel,omitempty"`
	Items        []Item `json:"items"`
	Refreshing   bool   `json:"refreshing"`
}

// Render maps a snapshot onto the screen layout.
func Render(s models.Snapshot) View {
	v := View{Refreshing: s.Refreshing, Items: []Item{}}
	if !s.Valid() {
		v.Loading = true
		v.LoadingLabel = LoadingLabel
		return v
	}
	v.Items = append(v.Items, Item{
		Key:         fmt.Sprintf("Weather-%d", 0),
		Label:       *s.Weather,
		Temperature: "(" + s.TemperatureText() + ")",
	})
	return v
}

// RenderText writes the plain-text form of v.
func RenderText(w io.Writer, v View) error {
	if v.Refreshing {
		if _, err := fmt.Fprintln(w, "[refreshing]"); err != nil {
			return err
		}
	}
	if v.Loading {
		_, err := fmt.Fprintln(w, v.LoadingLabel)
		return err
	}
	for _, item := range v.Items {
		if _, err := fmt.Fprintf(w, "%s\n%s\n", item.Label, item.Temperature); err != nil {
			return err
		}
	}
	return nil
}
