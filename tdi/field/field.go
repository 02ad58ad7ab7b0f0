// Package field describes one key or data field of a table.
//
// Descriptors are built by the schema package from backend metadata and
// never change afterwards, except for the allowed choices and annotations
// which are fetched from the backend the first time they are needed.
package field

import (
	"strconv"
	"sync"

	"github.com/tdictl/tdid/log"
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
)

// annotations with a meaning for this package.
const (
	AnnotationClass    = "$bfrt_field_class"
	AnnotationImpLevel = "$bfrt_field_imp_level"
	ClassRegisterData  = "register_data"

	DefaultImpLevel = 1
)

// MetaSource answers the lazy metadata queries of a descriptor.
// backend.Info implements it.
type MetaSource interface {
	KeyFieldNumAllowedChoices(tbl, field uint32) (int, backend.Status)
	KeyFieldAllowedChoices(tbl, field uint32, choices []string) backend.Status
	DataFieldNumAllowedChoices(tbl, field, action uint32) (int, backend.Status)
	DataFieldAllowedChoices(tbl, field, action uint32, choices []string) backend.Status
	DataFieldNumAnnotations(tbl, field, action uint32) (int, backend.Status)
	DataFieldAnnotations(tbl, field, action uint32, annotations []backend.Annotation) backend.Status
}

// Descriptor holds the contract of a field.
type Descriptor struct {
	Name      string
	ID        uint32
	Category  defs.Category
	MatchType defs.MatchType
	DataType  defs.DataType
	Width     int
	// Wide fields travel as big-endian buffers instead of native integers.
	Wide      bool
	ReadOnly  bool
	Mandatory bool
	// IPv4 fields are displayed as dotted quads.
	IPv4      bool

	ActionID   uint32
	ActionName string

	// Children of a container field, and Depth of the field in the
	// container tree (0 for top level fields).
	Children    []*Descriptor
	Depth       int
	InContainer bool

	table     uint32
	tableName string
	source    MetaSource

	choicesOnce     sync.Once
	choices         []string
	annotationsOnce sync.Once
	annotations     []backend.Annotation
}

// Bind attaches the descriptor, and its children, to the table it belongs
// to and to the source of its lazy metadata.
func (d *Descriptor) Bind(src MetaSource, table uint32, tableName string) *Descriptor {
	d.source = src
	d.table = table
	d.tableName = tableName
	for _, c := range d.Children {
		c.InContainer = true
		c.Bind(src, table, tableName)
	}
	return d
}

// Table returns the id of the table owning the field.
func (d *Descriptor) Table() uint32 {
	return d.table
}

// TableName returns the name of the table owning the field.
func (d *Descriptor) TableName() string {
	return d.tableName
}

// IsKey reports whether the field belongs to the key.
func (d *Descriptor) IsKey() bool {
	return d.Category == defs.Key
}

// Bytes returns the size in bytes of the field values.
func (d *Descriptor) Bytes() int {
	return defs.Bytes(d.Width)
}

// Required reports whether a value must be supplied by the caller. Ternary
// and optional keys can be omitted, the backend treats them as wildcards.
func (d *Descriptor) Required() bool {
	if !d.Mandatory || d.ReadOnly {
		return false
	}
	if d.IsKey() {
		return d.MatchType == defs.Exact || d.MatchType == defs.LPM || d.MatchType == defs.Range
	}
	return true
}

// Child returns the container child with the given name, or nil.
func (d *Descriptor) Child(name string) *Descriptor {
	for _, c := range d.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (d *Descriptor) logger() log.Tagged {
	return log.NewTagged("tdi.field", d.tableName)
}

// Choices returns the values allowed for a string field, nil for any other
// field or when the backend could not be queried.
func (d *Descriptor) Choices() []string {
	d.choicesOnce.Do(func() {
		if d.source == nil {
			return
		}
		if d.DataType != defs.String && (d.IsKey() || d.DataType != defs.StringArray) {
			return
		}
		var n int
		var sts backend.Status
		if d.IsKey() {
			n, sts = d.source.KeyFieldNumAllowedChoices(d.table, d.ID)
		} else {
			n, sts = d.source.DataFieldNumAllowedChoices(d.table, d.ID, d.ActionID)
		}
		if !sts.OK() {
			d.logger().Error("num choices for field %s failed. [%s]", d.Name, sts.Message())
			return
		}
		choices := make([]string, n)
		if d.IsKey() {
			sts = d.source.KeyFieldAllowedChoices(d.table, d.ID, choices)
		} else {
			sts = d.source.DataFieldAllowedChoices(d.table, d.ID, d.ActionID, choices)
		}
		if !sts.OK() {
			d.logger().Error("get choices for field %s failed. [%s]", d.Name, sts.Message())
			return
		}
		d.choices = choices
	})
	return d.choices
}

// Annotations returns the annotations of a data field. Keys and container
// fields (and their children) carry none.
func (d *Descriptor) Annotations() []backend.Annotation {
	d.annotationsOnce.Do(func() {
		if d.source == nil || d.IsKey() || d.InContainer {
			return
		}
		n, sts := d.source.DataFieldNumAnnotations(d.table, d.ID, d.ActionID)
		if !sts.OK() {
			d.logger().Error("num annotations for field %s failed. [%s]", d.Name, sts.Message())
			return
		}
		annotations := make([]backend.Annotation, n)
		if sts := d.source.DataFieldAnnotations(d.table, d.ID, d.ActionID, annotations); !sts.OK() {
			d.logger().Error("get annotations for field %s failed. [%s]", d.Name, sts.Message())
			return
		}
		d.annotations = annotations
	})
	return d.annotations
}

// Annotation returns the value of the first annotation with that name.
func (d *Descriptor) Annotation(name string) (string, bool) {
	for _, a := range d.Annotations() {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAnnotation reports whether the field is annotated with name=value.
func (d *Descriptor) HasAnnotation(name, value string) bool {
	for _, a := range d.Annotations() {
		if a.Name == name && a.Value == value {
			return true
		}
	}
	return false
}

// IsRegisterData reports whether the field holds register values, which
// the backend returns as one value per pipe.
func (d *Descriptor) IsRegisterData() bool {
	return d.HasAnnotation(AnnotationClass, ClassRegisterData)
}

// ImpLevel returns the importance level of the field, used to prune columns
// when entries are printed as a table.
func (d *Descriptor) ImpLevel() int {
	v, found := d.Annotation(AnnotationImpLevel)
	if !found {
		return DefaultImpLevel
	}
	level, err := strconv.Atoi(v)
	if err != nil {
		return DefaultImpLevel
	}
	return level
}
