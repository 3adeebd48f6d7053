package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
	"github.com/ALT-F4-LLC/pasfini/internal/render"
)

type roomStat struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Open  int    `json:"open"`
	Total int    `json:"total"`
}

type statsResult struct {
	Total  int            `json:"total"`
	Open   int            `json:"open"`
	Done   int            `json:"done"`
	ByType map[string]int `json:"by_type"`
	Rooms  []roomStat     `json:"rooms"`
	Photos int            `json:"photos"`
}

func computeStats(issues []*model.Issue, rooms []model.Room, photos int) statsResult {
	s := statsResult{
		Total:  len(issues),
		ByType: map[string]int{string(model.TypeReserve): 0, string(model.TypeTodo): 0},
		Rooms:  []roomStat{},
		Photos: photos,
	}
	for _, col := range render.BoardColumns(issues, rooms) {
		rs := roomStat{Slug: col.Room.Slug, Name: col.Room.Name, Total: len(col.Issues)}
		for _, i := range col.Issues {
			if i.Status == model.StatusOpen {
				rs.Open++
			}
		}
		s.Rooms = append(s.Rooms, rs)
	}
	for _, i := range issues {
		if i.Status == model.StatusDone {
			s.Done++
		} else {
			s.Open++
		}
		s.ByType[string(i.Type)]++
	}
	return s
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show summary statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()

		issues, err := st.ListIssues(ctx)
		if err != nil {
			return storeErr(err, "listing issues")
		}
		rooms, err := st.ListRooms(ctx)
		if err != nil {
			return storeErr(err, "listing rooms")
		}
		photos, err := st.CountPhotos(ctx)
		if err != nil {
			return storeErr(err, "counting photos")
		}

		result := computeStats(issues, rooms, photos)
		var message string
		if !w.JSONMode {
			message = renderStats(result)
		}
		w.Success(result, message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

// renderStats renders the stats result as a human-readable string.
func renderStats(s statsResult) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valueStyle := lipgloss.NewStyle().Bold(true)

	line := func(label string, width int, value string, style lipgloss.Style) string {
		return fmt.Sprintf("  %s %s",
			render.StyledText(fmt.Sprintf("%-*s", width, label+":"), labelStyle),
			render.StyledText(value, style))
	}
	count := func(n int) string { return fmt.Sprintf("%d", n) }
	colored := func(name string) lipgloss.Style {
		return lipgloss.NewStyle().Bold(true).Foreground(render.ColorFromName(name))
	}

	overview := []string{
		render.StyledText("Overview", sectionStyle),
		line("Total", 14, count(s.Total), valueStyle),
		line(model.StatusOpen.Label(), 14, count(s.Open), colored(model.StatusOpen.Color())),
		line(model.StatusDone.Label(), 14, count(s.Done), colored(model.StatusDone.Color())),
		line(model.TypeReserve.Label(), 14, count(s.ByType[string(model.TypeReserve)]), valueStyle),
		line(model.TypeTodo.Label(), 14, count(s.ByType[string(model.TypeTodo)]), valueStyle),
		line("Photos", 14, count(s.Photos), valueStyle),
	}

	byRoom := []string{render.StyledText("By Room", sectionStyle)}
	if len(s.Rooms) == 0 {
		byRoom = append(byRoom, "  "+render.StyledText("(none)", labelStyle))
	}
	for _, r := range s.Rooms {
		byRoom = append(byRoom, line(r.Name, 20, fmt.Sprintf("%d/%d open", r.Open, r.Total), valueStyle))
	}

	return strings.Join(overview, "\n") + "\n\n" + strings.Join(byRoom, "\n")
}
