package model

import "fmt"

// Descriptor describes one candidate pose model. Descriptors are immutable
// and defined at process start; registry order encodes preference, fastest
// and smallest first.
type Descriptor struct {
	// ID identifies the model in results and logs (e.g. "yolov8n-pose").
	ID string
	// Path is a collaborator-resolved resource locator for the model file.
	Path string
	// InputSize is the square input resolution the model expects.
	InputSize int
	// Confidence is the minimum objectness for a candidate to count as a
	// detection, in (0,1).
	Confidence float64
}

func (d Descriptor) validate() error {
	if d.ID == "" {
		return fmt.Errorf("descriptor id is required")
	}
	if d.Path == "" {
		return fmt.Errorf("descriptor %q: path is required", d.ID)
	}
	if d.InputSize <= 0 {
		return fmt.Errorf("descriptor %q: input_size must be > 0", d.ID)
	}
	if d.Confidence <= 0 || d.Confidence >= 1 {
		return fmt.Errorf("descriptor %q: confidence must be in (0,1)", d.ID)
	}
	return nil
}

// Registry is an ordered, immutable list of model descriptors.
type Registry struct {
	descriptors []Descriptor
}

// NewRegistry builds a registry from an ordered descriptor list.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("registry requires at least one descriptor")
	}
	seen := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("duplicate descriptor id %q", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	r := &Registry{descriptors: make([]Descriptor, len(descriptors))}
	copy(r.descriptors, descriptors)
	return r, nil
}

// Descriptors returns the descriptors in preference order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// StartingAt returns the descriptors in preference order, rotated so the
// descriptor with the given id comes first. An empty or unknown id yields
// the registry's own order.
func (r *Registry) StartingAt(id string) []Descriptor {
	start := 0
	for i, d := range r.descriptors {
		if d.ID == id {
			start = i
			break
		}
	}
	out := make([]Descriptor, 0, len(r.descriptors))
	out = append(out, r.descriptors[start:]...)
	out = append(out, r.descriptors[:start]...)
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	return len(r.descriptors)
}
