// Package codegen renders a pipeline model into main.nf and nextflow.config.
package codegen

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/rendis/nfstudio/pkg/schema"
)

// File names written by WriteFiles.
const (
	ScriptFile = "main.nf"
	ConfigFile = "nextflow.config"
)

//go:embed templates/main.nf.tmpl
var scriptTmplText string

//go:embed templates/nextflow.config.tmpl
var configTmplText string

var funcs = template.FuncMap{
	"groovy":   groovyLiteral,
	"setting":  settingLiteral,
	"channel":  channelDecl,
	"indent":   indent,
	"workflow": workflowBlock,
	"key":      groovyKey,
	"comment":  commentText,
	"script":   scriptBody,
}

var (
	scriptTmpl = template.Must(template.New("main.nf").Funcs(funcs).Parse(scriptTmplText))
	configTmpl = template.Must(template.New("nextflow.config").Funcs(funcs).Parse(configTmplText))
)

// Artifacts holds both rendered files.
type Artifacts struct {
	Script string `json:"main_nf"`
	Config string `json:"nextflow_config"`
}

// RenderScript renders main.nf.
func RenderScript(p *schema.Pipeline) (string, error) {
	if p == nil {
		return "", schema.NewError(schema.ErrCodeValidation, "pipeline is nil")
	}
	return execute(scriptTmpl, p)
}

// RenderConfig renders nextflow.config. Per-process resources (cpus, memory,
// time, container) live here as withName selectors rather than in main.nf.
func RenderConfig(p *schema.Pipeline) (string, error) {
	if p == nil {
		return "", schema.NewError(schema.ErrCodeValidation, "pipeline is nil")
	}
	return execute(configTmpl, newConfigView(p))
}

// Render renders both artifacts.
func Render(p *schema.Pipeline) (*Artifacts, error) {
	script, err := RenderScript(p)
	if err != nil {
		return nil, err
	}
	config, err := RenderConfig(p)
	if err != nil {
		return nil, err
	}
	return &Artifacts{Script: script, Config: config}, nil
}

// WriteFiles renders both artifacts into dir, creating it if needed, and
// returns the written paths.
func WriteFiles(dir string, p *schema.Pipeline) ([]string, error) {
	art, err := Render(p)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeRender, "create output dir %s", dir).WithCause(err)
	}

	files := []struct{ name, body string }{
		{ScriptFile, art.Script},
		{ConfigFile, art.Config},
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.body), 0o644); err != nil {
			return paths, schema.NewErrorf(schema.ErrCodeRender, "write %s", path).WithCause(err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", schema.NewErrorf(schema.ErrCodeRender, "render %s: %s", t.Name(), err.Error()).WithCause(err)
	}
	return buf.String(), nil
}

type setting struct {
	Key   string
	Value string
}

type resources struct {
	Name     string
	Settings []setting
}

type configView struct {
	Name        string
	Description string
	Author      string
	Version     string
	Params      []schema.Param
	Executor    string
	Resources   []resources
	Docker      bool
	Singularity bool
	Profiles    map[string]map[string]string
}

func newConfigView(p *schema.Pipeline) configView {
	m := p.Config.Manifest
	v := configView{
		Name:        p.Name,
		Description: m.Description,
		Author:      m.Author,
		Version:     m.Version,
		Params:      p.Params,
		Executor:    p.Config.Executor,
		Docker:      p.Config.Docker,
		Singularity: p.Config.Singularity,
		Profiles:    p.Config.Profiles,
	}
	if v.Description == "" {
		v.Description = p.Description
	}

	for _, proc := range p.Processes {
		var s []setting
		if proc.CPUs > 0 {
			s = append(s, setting{"cpus", fmt.Sprint(proc.CPUs)})
		}
		if proc.Memory != "" {
			s = append(s, setting{"memory", groovyLiteral(proc.Memory)})
		}
		if proc.Time != "" {
			s = append(s, setting{"time", groovyLiteral(proc.Time)})
		}
		if proc.Container != "" {
			s = append(s, setting{"container", groovyLiteral(proc.Container)})
		}
		if len(s) > 0 {
			v.Resources = append(v.Resources, resources{Name: proc.Name, Settings: s})
		}
	}
	return v
}
