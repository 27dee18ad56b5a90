package render

import "github.com/layercake/layercake/internal/model"

// resolvedStyle is the concrete colour triple a render target applies to one
// layer, after cascading the layer's own colours through the built-in
// fallback palette (spec.md §4.6's `built_in_styles` option).
type resolvedStyle struct {
	Background string
	Text       string
	Border     string
}

var lightPalette = resolvedStyle{Background: "#F5F5F5", Text: "#222222", Border: "#999999"}
var darkPalette = resolvedStyle{Background: "#2B2B2B", Text: "#EEEEEE", Border: "#555555"}

// resolveStyle applies a layer's own colours, falling back to cfg's
// built-in style when a colour is unset. It does not consult ApplyLayers:
// RenderMermaid and RenderPlantUML check ApplyLayers before styling, while
// the DOT and Custom contexts built by buildRenderContext always carry
// resolved styles, whatever ApplyLayers says.
func resolveStyle(layer *model.GraphLayer, cfg model.RenderConfig) resolvedStyle {
	fallback := resolvedStyle{}
	switch cfg.BuiltInStyles {
	case model.StyleLight:
		fallback = lightPalette
	case model.StyleDark:
		fallback = darkPalette
	}

	style := fallback
	if layer != nil {
		if layer.BackgroundColor != "" {
			style.Background = layer.BackgroundColor
		}
		if layer.TextColor != "" {
			style.Text = layer.TextColor
		}
		if layer.BorderColor != "" {
			style.Border = layer.BorderColor
		}
	}
	return style
}

// layerAlias returns a layer's declared Alias, defaulting to its LayerID.
func layerAlias(layer *model.GraphLayer) string {
	if layer == nil {
		return ""
	}
	if layer.Alias != "" {
		return layer.Alias
	}
	return layer.LayerID
}
