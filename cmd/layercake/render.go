package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/render"
)

var (
	renderGraphDataID string
	renderTarget      string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a GraphData to an artefact",
	RunE: func(cmd *cobra.Command, args []string) error {
		if renderGraphDataID == "" {
			return fmt.Errorf("--graph is required")
		}
		target := model.RenderTarget(renderTarget)
		renderer, err := render.ForTarget(target)
		if err != nil {
			return err
		}

		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		nodes, edges, layers, err := a.store.LoadContents(ctx, renderGraphDataID)
		if err != nil {
			return err
		}

		g := graphmodel.New(renderGraphDataID)
		for _, n := range nodes {
			g.UpsertNode(n)
		}
		for _, e := range edges {
			g.AppendEdge(e)
		}
		for _, l := range layers {
			g.UpsertLayer(l)
		}

		out, err := renderer.Render(g, model.RenderConfig{ApplyLayers: true})
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderGraphDataID, "graph", "", "GraphData id")
	renderCmd.Flags().StringVar(&renderTarget, "target", string(model.TargetMermaid), "render target (Mermaid|DOT|GML|JSON|...)")

	rootCmd.AddCommand(renderCmd)
}
