// Package dockerfile renders the dev container Dockerfile from the configured
// runtimes. Layers are composed in a fixed order so equal configuration always
// renders byte-identical text and therefore the same image tag.
package dockerfile

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/ryanmoran/bubble/internal"
	"github.com/ryanmoran/bubble/internal/docker"
)

//go:embed templates/*.dockerfile.tmpl
var templateFS embed.FS

//go:embed templates/install-chief.sh
var installChief []byte

// Options selects optional tool layers.
type Options struct {
	Chief bool
}

// Result is a rendered Dockerfile and the extra files its build context needs.
type Result struct {
	Dockerfile   string
	ContextFiles []docker.ContextFile
}

type layers struct {
	PHP   string
	Node  string
	Rust  bool
	Go    string
	Chief bool
}

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (Renderer, error) {
	tmpl, err := template.New("base.dockerfile.tmpl").Option("missingkey=error").ParseFS(templateFS, "templates/*.dockerfile.tmpl")
	if err != nil {
		return Renderer{}, fmt.Errorf("failed to parse Dockerfile templates: %w", err)
	}
	return Renderer{tmpl: tmpl}, nil
}

// Render validates the runtime versions and renders the Dockerfile.
func (r Renderer) Render(runtimes internal.RuntimeConfig, opts Options) (Result, error) {
	l := layers{Rust: runtimes.Rust, Chief: opts.Chief}

	var err error
	if runtimes.PHP != "" {
		if l.PHP, err = phpRuntime.resolve(runtimes.PHP); err != nil {
			return Result{}, err
		}
	}
	if runtimes.Node != "" {
		if l.Node, err = nodeRuntime.resolve(runtimes.Node); err != nil {
			return Result{}, err
		}
	}
	if runtimes.Go != "" {
		if l.Go, err = goRuntime.resolve(runtimes.Go); err != nil {
			return Result{}, err
		}
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "base.dockerfile.tmpl", l); err != nil {
		return Result{}, fmt.Errorf("failed to render Dockerfile: %w", err)
	}

	result := Result{Dockerfile: buf.String()}
	if opts.Chief {
		result.ContextFiles = append(result.ContextFiles, docker.ContextFile{
			Path:    "install-chief.sh",
			Content: installChief,
			Mode:    0o755,
		})
	}
	return result, nil
}
