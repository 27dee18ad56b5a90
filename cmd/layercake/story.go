package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/render"
)

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Manage Stories and Sequences",
}

var storyProjectID string

var storyCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new Story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if storyProjectID == "" {
			return fmt.Errorf("--project is required")
		}
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		now := time.Now().UTC()
		st := &model.Story{ID: uuid.NewString(), ProjectID: storyProjectID, Name: args[0], CreatedAt: now, UpdatedAt: now}
		if err := a.store.CreateStory(context.Background(), st); err != nil {
			return err
		}
		fmt.Println(st.ID)
		return nil
	},
}

var sequenceStoryID string

var storyAddSequenceCmd = &cobra.Command{
	Use:   "add-sequence",
	Short: "Add an empty Sequence to a Story",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sequenceStoryID == "" {
			return fmt.Errorf("--story is required")
		}
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		now := time.Now().UTC()
		sq := &model.Sequence{ID: uuid.NewString(), StoryID: sequenceStoryID, CreatedAt: now, UpdatedAt: now}
		if err := a.store.CreateSequence(context.Background(), sq); err != nil {
			return err
		}
		fmt.Println(sq.ID)
		return nil
	},
}

var (
	renderStoryProjectID string
	renderStoryID        string
	renderSequenceID     string
	renderSequenceTarget string
)

var storyRenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a Story Sequence as a sequence diagram",
	RunE: func(cmd *cobra.Command, args []string) error {
		if renderStoryProjectID == "" || renderStoryID == "" || renderSequenceID == "" {
			return fmt.Errorf("--project, --story, and --sequence are required")
		}
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		sc, err := a.stories.BuildContext(context.Background(), renderStoryProjectID, renderStoryID, renderSequenceID)
		if err != nil {
			return err
		}

		var out string
		switch model.RenderTarget(renderSequenceTarget) {
		case model.TargetPlantUMLSequence:
			out, err = render.RenderPlantUMLSequence(sc, model.RenderConfig{})
		default:
			out, err = render.RenderMermaidSequence(sc, model.RenderConfig{})
		}
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	storyCreateCmd.Flags().StringVar(&storyProjectID, "project", "", "Project id")
	storyAddSequenceCmd.Flags().StringVar(&sequenceStoryID, "story", "", "Story id")

	storyRenderCmd.Flags().StringVar(&renderStoryProjectID, "project", "", "Project id")
	storyRenderCmd.Flags().StringVar(&renderStoryID, "story", "", "Story id")
	storyRenderCmd.Flags().StringVar(&renderSequenceID, "sequence", "", "Sequence id")
	storyRenderCmd.Flags().StringVar(&renderSequenceTarget, "target", string(model.TargetMermaidSequence), "Mermaid-sequence|PlantUML-sequence")

	storyCmd.AddCommand(storyCreateCmd, storyAddSequenceCmd, storyRenderCmd)
	rootCmd.AddCommand(storyCmd)
}
