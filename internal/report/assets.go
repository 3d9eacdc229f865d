package report

import (
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

const pageStyle = `
body { font-family: system-ui, sans-serif; max-width: 72rem; margin: 2rem auto; padding: 0 1rem; }
table { border-collapse: collapse; margin-bottom: 1.5rem; }
th, td { border: 1px solid #cccccc; padding: 0.3rem 0.6rem; }
th { background: #f4f4f4; }
pre.mermaid { background: transparent; }
`

const pageScript = `
import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.esm.min.mjs";
mermaid.initialize({ startOnLoad: true, theme: "default" });
`

var (
	assetsOnce sync.Once
	minStyle   string
	minScript  string
)

// pageAssets returns the minified stylesheet and module script embedded in
// every HTML report.
func pageAssets() (style, script string) {
	assetsOnce.Do(func() {
		minStyle = minify(pageStyle, api.LoaderCSS)
		minScript = minify(pageScript, api.LoaderJS)
	})
	return minStyle, minScript
}

// minify falls back to the source text when esbuild reports an error.
func minify(code string, loader api.Loader) string {
	res := api.Transform(code, api.TransformOptions{
		Loader:           loader,
		MinifyWhitespace: true,
		MinifySyntax:     true,
	})
	if len(res.Errors) > 0 {
		log.Debug().Str("error", res.Errors[0].Text).Msg("Asset minification failed")
		return strings.TrimSpace(code)
	}
	return strings.TrimSpace(string(res.Code))
}
