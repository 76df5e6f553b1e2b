package schema

// Pipeline is the in-memory model a user edits: parameters, processes and the
// free-text workflow block. Both output artifacts are rendered from it.
type Pipeline struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Params      []Param        `json:"params,omitempty" yaml:"params,omitempty"`
	Processes   []Process      `json:"processes,omitempty" yaml:"processes,omitempty"`
	Workflow    string         `json:"workflow,omitempty" yaml:"workflow,omitempty"`
	Config      ConfigSettings `json:"config,omitempty" yaml:"config,omitempty"`
}

// ParamType enumerates the value kinds a pipeline parameter may hold.
type ParamType string

const (
	ParamTypeString  ParamType = "string"
	ParamTypeInteger ParamType = "integer"
	ParamTypeNumber  ParamType = "number"
	ParamTypeBoolean ParamType = "boolean"
	ParamTypePath    ParamType = "path"
)

// Param is a pipeline-level parameter (params.<name>).
type Param struct {
	Name        string    `json:"name" yaml:"name"`
	Type        ParamType `json:"type,omitempty" yaml:"type,omitempty"` // default: string
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Rule        string    `json:"rule,omitempty" yaml:"rule,omitempty"`               // boolean expression over `value`
	RuleEngine  string    `json:"rule_engine,omitempty" yaml:"rule_engine,omitempty"` // expr | cel (default: expr)
}

// ChannelKind is the qualifier of a process input or output declaration.
type ChannelKind string

const (
	ChannelVal    ChannelKind = "val"
	ChannelPath   ChannelKind = "path"
	ChannelTuple  ChannelKind = "tuple"
	ChannelEnv    ChannelKind = "env"
	ChannelStdout ChannelKind = "stdout"
)

// Channel is one input or output declaration of a process.
type Channel struct {
	Kind ChannelKind `json:"kind,omitempty" yaml:"kind,omitempty"` // default: val
	Name string      `json:"name,omitempty" yaml:"name,omitempty"` // identifier, glob or tuple body
	Emit string      `json:"emit,omitempty" yaml:"emit,omitempty"` // output only
}

// Process is a named unit of work with declared inputs, outputs and script.
type Process struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Container   string    `json:"container,omitempty" yaml:"container,omitempty"`
	CPUs        int       `json:"cpus,omitempty" yaml:"cpus,omitempty"`
	Memory      string    `json:"memory,omitempty" yaml:"memory,omitempty"` // e.g. "4 GB"
	Time        string    `json:"time,omitempty" yaml:"time,omitempty"`     // e.g. "2h"
	PublishDir  string    `json:"publish_dir,omitempty" yaml:"publish_dir,omitempty"`
	Inputs      []Channel `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs     []Channel `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Script      string    `json:"script,omitempty" yaml:"script,omitempty"`
}

// Manifest is the manifest scope of the configuration file.
type Manifest struct {
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ConfigSettings drives nextflow.config generation.
type ConfigSettings struct {
	Executor    string                       `json:"executor,omitempty" yaml:"executor,omitempty"` // local, slurm, awsbatch...
	Docker      bool                         `json:"docker,omitempty" yaml:"docker,omitempty"`
	Singularity bool                         `json:"singularity,omitempty" yaml:"singularity,omitempty"`
	Profiles    map[string]map[string]string `json:"profiles,omitempty" yaml:"profiles,omitempty"` // profile -> process setting -> value
	Manifest    Manifest                     `json:"manifest,omitempty" yaml:"manifest,omitempty"`
}

// ProcessDeclaration is the minimal view of a process the graph visualizer needs.
type ProcessDeclaration struct {
	Name string `json:"name"`
}

// Declarations returns the process declarations in declaration order.
func (p *Pipeline) Declarations() []ProcessDeclaration {
	out := make([]ProcessDeclaration, 0, len(p.Processes))
	for _, proc := range p.Processes {
		out = append(out, ProcessDeclaration{Name: proc.Name})
	}
	return out
}

// Process returns the process with the given name, or nil.
func (p *Pipeline) Process(name string) *Process {
	for i := range p.Processes {
		if p.Processes[i].Name == name {
			return &p.Processes[i]
		}
	}
	return nil
}

// Param returns the parameter with the given name, or nil.
func (p *Pipeline) Param(name string) *Param {
	for i := range p.Params {
		if p.Params[i].Name == name {
			return &p.Params[i]
		}
	}
	return nil
}
