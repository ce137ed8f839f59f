// Package jobfile loads YAML job files describing abinit workflows and
// builds them.
package jobfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

// Task kinds.
const (
	KindAbinit = "abinit"
	KindAnaddb = "anaddb"
	KindMrgddb = "mrgddb"
	KindMrgdv  = "mrgdv"
)

// File is a parsed job file.
type File struct {
	Jobs []Job `yaml:"jobs"`

	// Path is where the file was read from; relative paths inside resolve
	// against its directory.
	Path string `yaml:"-"`
}

// Job becomes one workflow.
type Job struct {
	Name      string `yaml:"name"`
	Directory string `yaml:"directory"`
	Safe      bool   `yaml:"safe"`
	Script    string `yaml:"script"`
	Tasks     []Task `yaml:"tasks"`
}

// LinkIO feeds the output of one dataset to another in the same task.
type LinkIO struct {
	Consumer int    `yaml:"consumer"`
	Producer int    `yaml:"producer"`
	Kind     string `yaml:"kind"`
}

// Link makes Source available at Dest inside the task directory.
type Link struct {
	Source string `yaml:"source"`
	Dest   string `yaml:"dest"`
}

// Task describes one task of a job.
type Task struct {
	Kind      string `yaml:"kind"`
	Name      string `yaml:"name"`
	Directory string `yaml:"directory"`
	Rootname  string `yaml:"rootname"`
	Script    string `yaml:"script"`
	Merge     bool   `yaml:"merge"`
	NProc     int    `yaml:"nproc"`
	Comment   string `yaml:"comment"`

	NDTSet          int                       `yaml:"ndtset"`
	JDTSet          []int                     `yaml:"jdtset"`
	UDTSet          []int                     `yaml:"udtset"`
	Variables       map[string]any            `yaml:"variables"`
	Decimals        map[string]int            `yaml:"decimals"`
	Datasets        map[string]map[string]any `yaml:"datasets"`
	DatasetComments map[string]string         `yaml:"dataset_comments"`
	Structure       string                    `yaml:"structure"`
	PseudoDir       string                    `yaml:"pseudo_dir"`
	Pseudos         []string                  `yaml:"pseudos"`
	LinksIO         []LinkIO                  `yaml:"links_io"`
	Links           []Link                    `yaml:"links"`

	Inputs []string `yaml:"inputs"`
	DDB    string   `yaml:"ddb"`
	GKK    string   `yaml:"gkk"`
	DDK    string   `yaml:"ddk"`
}

// DatasetIndices returns the keys of Datasets and DatasetComments as
// sorted integers.
func (t Task) DatasetIndices() ([]int, error) {
	seen := make(map[int]bool)
	keys := make([]string, 0, len(t.Datasets)+len(t.DatasetComments))
	for k := range t.Datasets {
		keys = append(keys, k)
	}
	for k := range t.DatasetComments {
		keys = append(keys, k)
	}
	for _, k := range keys {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("dataset index %q: %w", k, err)
		}
		seen[n] = true
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	slices.Sort(out)
	return out, nil
}

var schema = jsonschema.MustCompileString("schema.json", schemaJSON)

// Load reads, validates and decodes the job file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse validates and decodes a job file document.
func Parse(data []byte) (*File, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode job file: %w", err)
	}
	if err := f.check(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks a decoded YAML document against the job file schema.
func Validate(doc any) error {
	// Round-trip through JSON so the validator sees JSON types only.
	raw, err := json.Marshal(normalize(doc))
	if err != nil {
		return fmt.Errorf("convert job file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("convert job file: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("invalid job file: %w", err)
	}
	return nil
}

// check enforces what the schema cannot express.
func (f *File) check() error {
	names := make(map[string]bool, len(f.Jobs))
	for _, j := range f.Jobs {
		if names[j.Name] {
			return fmt.Errorf("duplicate job name %q", j.Name)
		}
		names[j.Name] = true
		for i, t := range j.Tasks {
			if _, err := t.DatasetIndices(); err != nil {
				return fmt.Errorf("job %s task %d: %w", j.Name, i, err)
			}
			if (t.Kind == KindMrgddb || t.Kind == KindMrgdv) && len(t.Inputs) == 0 {
				return fmt.Errorf("job %s task %d: %s needs inputs", j.Name, i, t.Kind)
			}
		}
	}
	return nil
}

// Names returns the job names in file order.
func (f *File) Names() []string {
	out := make([]string, len(f.Jobs))
	for i, j := range f.Jobs {
		out[i] = j.Name
	}
	return out
}

// Select returns a copy of f restricted to the named jobs, in file order.
// No names selects every job.
func (f *File) Select(names ...string) (*File, error) {
	if len(names) == 0 {
		return f, nil
	}
	for _, n := range names {
		if !slices.Contains(f.Names(), n) {
			return nil, fmt.Errorf("no job named %q", n)
		}
	}
	out := &File{Path: f.Path}
	for _, j := range f.Jobs {
		if slices.Contains(names, j.Name) {
			out.Jobs = append(out.Jobs, j)
		}
	}
	return out, nil
}

// Resolve returns p relative to the job file directory, or p unchanged
// when absolute or empty.
func (f *File) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(f.Path), p)
}

// normalize turns the map[any]any YAML produces for non-string keys into
// map[string]any.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
