package cli

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/pasfini/internal/model"
	"github.com/ALT-F4-LLC/pasfini/internal/output"
	"github.com/ALT-F4-LLC/pasfini/internal/render"
)

var roomCmd = &cobra.Command{
	Use:     "room",
	Short:   "Manage rooms",
	Aliases: []string{"r"},
}

type roomListResult struct {
	Rooms   []model.Room `json:"rooms"`
	Current string       `json:"current"`
}

var roomListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List rooms",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()

		rooms, err := st.ListRooms(ctx)
		if err != nil {
			return storeErr(err, "listing rooms")
		}
		current, err := st.LastSelectedRoom(ctx)
		if err != nil {
			return storeErr(err, "reading last room")
		}

		var message string
		if !w.JSONMode {
			issues, err := st.ListIssues(ctx)
			if err != nil {
				return storeErr(err, "listing issues")
			}
			message = render.RenderRoomTable(rooms, issues, current)
		}
		w.Success(roomListResult{Rooms: rooms, Current: current}, message)
		return nil
	},
}

var roomAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()

		name := strings.TrimSpace(args[0])
		slug, _ := cmd.Flags().GetString("slug")
		letter, _ := cmd.Flags().GetString("letter")

		if name == "" {
			return cmdErr(fmt.Errorf("room name is required"), output.ErrValidation)
		}
		if slug == "" {
			slug = model.Slugify(name)
		}
		if err := model.ValidateSlug(slug); err != nil {
			return cmdErr(err, output.ErrValidation)
		}
		letter = strings.ToUpper(strings.TrimSpace(letter))
		if utf8.RuneCountInString(letter) > 1 {
			return cmdErr(fmt.Errorf("room letter must be a single character, got %q", letter), output.ErrValidation)
		}

		rooms, err := st.ListRooms(ctx)
		if err != nil {
			return storeErr(err, "listing rooms")
		}
		for _, r := range rooms {
			if r.Slug == slug {
				return cmdErr(fmt.Errorf("room %q already exists", slug), output.ErrConflict)
			}
			if letter != "" && r.Letter == letter {
				w.Warn("letter %s is already used by %s", letter, r.Name)
			}
		}

		room := model.Room{Slug: slug, Name: name, Letter: letter}
		if err := st.SaveRooms(ctx, append(rooms, room)); err != nil {
			return storeErr(err, "saving rooms")
		}
		w.Success(room, fmt.Sprintf("Added room %s (%s)", room.Name, room.Slug))
		return nil
	},
}

var roomRemoveCmd = &cobra.Command{
	Use:     "remove <slug>",
	Short:   "Remove a room",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()
		slug := args[0]
		force, _ := cmd.Flags().GetBool("force")

		rooms, err := st.ListRooms(ctx)
		if err != nil {
			return storeErr(err, "listing rooms")
		}
		kept := make([]model.Room, 0, len(rooms))
		var removed *model.Room
		for _, r := range rooms {
			if r.Slug == slug {
				removed = &r
				continue
			}
			kept = append(kept, r)
		}
		if removed == nil {
			return cmdErr(fmt.Errorf("room %q not found", slug), output.ErrNotFound)
		}

		issues, err := st.ListIssues(ctx)
		if err != nil {
			return storeErr(err, "listing issues")
		}
		inUse := 0
		for _, i := range issues {
			if i.RoomSlug == slug {
				inUse++
			}
		}
		if inUse > 0 && !force {
			return cmdErr(fmt.Errorf("room %q has %d issue(s): use --force to remove it anyway", slug, inUse), output.ErrConflict)
		}

		if err := st.SaveRooms(ctx, kept); err != nil {
			return storeErr(err, "saving rooms")
		}
		if last, err := st.LastSelectedRoom(ctx); err == nil && last == slug {
			if err := st.SetLastSelectedRoom(ctx, ""); err != nil {
				return storeErr(err, "clearing last room")
			}
		}
		if inUse > 0 {
			w.Warn("%d issue(s) still point at %s", inUse, slug)
		}
		w.Success(removed, fmt.Sprintf("Removed room %s", removed.Name))
		return nil
	},
}

var roomUseCmd = &cobra.Command{
	Use:   "use <slug>",
	Short: "Select the default room for new issues",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		st := getStore(cmd)
		ctx := cmd.Context()

		room, err := resolveRoom(ctx, st, args[0])
		if err != nil {
			return err
		}
		if err := st.SetLastSelectedRoom(ctx, room.Slug); err != nil {
			return storeErr(err, "saving last room")
		}
		w.Success(room, fmt.Sprintf("Now logging in %s", room.Name))
		return nil
	},
}

func init() {
	roomAddCmd.Flags().String("slug", "", "Room slug (default: derived from the name)")
	roomAddCmd.Flags().StringP("letter", "l", "", "Code letter for issues in this room")
	roomRemoveCmd.Flags().BoolP("force", "f", false, "Remove even if issues reference the room")

	roomCmd.AddCommand(roomListCmd, roomAddCmd, roomRemoveCmd, roomUseCmd)
	rootCmd.AddCommand(roomCmd)
}
