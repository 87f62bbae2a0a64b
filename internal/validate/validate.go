// Package validate checks push request bodies before any store call is made.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/opentutorials-org/otu-sync/internal/errs"
	"github.com/opentutorials-org/otu-sync/internal/model"
)

// Rule names reported in violations.
const (
	ruleRequired = "required"
	ruleObject   = "object"
	ruleArray    = "array"
	ruleString   = "nonempty_string"
	ruleNumber   = "epoch_millis"
)

// pushView mirrors the push body for tag-driven validation.
type pushView struct {
	Page   *groupView `json:"page" validate:"required"`
	Folder *groupView `json:"folder" validate:"omitempty"`
	Alarm  *groupView `json:"alarm" validate:"omitempty"`
}

type groupView struct {
	Type    any           `json:"type" validate:"omitempty,nonempty_string"`
	Created []*recordView `json:"created" validate:"dive,omitempty"`
	Updated []*recordView `json:"updated" validate:"dive,omitempty"`
	Deleted []any         `json:"deleted" validate:"dive,required,nonempty_string"`

	created, updated []model.Record
}

type recordView struct {
	ID        any `json:"id" validate:"required,nonempty_string"`
	UpdatedAt any `json:"updated_at" validate:"required,epoch_millis"`
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = val.RegisterValidation(ruleString, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && s != ""
	})
	_ = val.RegisterValidation(ruleNumber, func(fl validator.FieldLevel) bool {
		return model.IsNumber(fl.Field().Interface())
	})
	return val
}

// ParsePush decodes and validates a push body.
// It returns *errs.BadRequestError for malformed JSON and *errs.InvalidBodyError for shape violations.
func ParsePush(body []byte) (model.SyncBatch, error) {
	raw, err := decode(body)
	if err != nil {
		return model.SyncBatch{}, &errs.BadRequestError{Err: err}
	}

	var viol violations
	top, ok := raw.(map[string]any)
	if !ok {
		viol.add("", ruleObject)
		return model.SyncBatch{}, viol.err()
	}

	view := pushView{
		Page:   buildGroup("page", top["page"], &viol),
		Folder: buildGroup("folder", top["folder"], &viol),
		Alarm:  buildGroup("alarm", top["alarm"], &viol),
	}
	if _, present := top["page"]; !present || top["page"] == nil {
		viol.add("page", ruleRequired)
	}

	if err := v.Struct(view); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return model.SyncBatch{}, err
		}
		for _, fe := range ves {
			viol.add(fieldPath(fe.Namespace()), fe.Tag())
		}
	}
	if len(viol) > 0 {
		return model.SyncBatch{}, viol.err()
	}

	out := model.SyncBatch{
		Page:   model.PageBatch{SyncEntityBatch: *toBatch(view.Page)},
		Folder: toBatch(view.Folder),
		Alarm:  toBatch(view.Alarm),
	}
	out.Page.Type, _ = view.Page.Type.(string)
	return out, nil
}

func decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON body")
	}
	return raw, nil
}

// buildGroup converts one entity group; structural problems are recorded in viol.
func buildGroup(path string, raw any, viol *violations) *groupView {
	if raw == nil {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		viol.add(path, ruleObject)
		return nil
	}
	g := &groupView{Type: m["type"]}
	g.Created, g.created = buildRecords(path+".created", m["created"], viol)
	g.Updated, g.updated = buildRecords(path+".updated", m["updated"], viol)

	switch d := m["deleted"].(type) {
	case nil:
	case []any:
		g.Deleted = d
	default:
		viol.add(path+".deleted", ruleArray)
	}
	return g
}

func buildRecords(path string, raw any, viol *violations) ([]*recordView, []model.Record) {
	if raw == nil {
		return nil, nil
	}
	arr, ok := raw.([]any)
	if !ok {
		viol.add(path, ruleArray)
		return nil, nil
	}
	views := make([]*recordView, len(arr))
	recs := make([]model.Record, 0, len(arr))
	for i, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			viol.add(path+"["+strconv.Itoa(i)+"]", ruleObject)
			continue
		}
		views[i] = &recordView{ID: obj["id"], UpdatedAt: obj["updated_at"]}
		recs = append(recs, model.Record(obj))
	}
	return views, recs
}

func toBatch(g *groupView) *model.SyncEntityBatch {
	if g == nil {
		return nil
	}
	b := &model.SyncEntityBatch{Created: g.created, Updated: g.updated}
	for _, id := range g.Deleted {
		b.Deleted = append(b.Deleted, id.(string))
	}
	b.Normalize()
	return b
}

// fieldPath strips the root struct name from a validator namespace.
func fieldPath(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return ns
	}
	return rest
}

type violations []errs.Violation

func (vs *violations) add(field, rule string) {
	for _, existing := range *vs {
		if existing.Field == field {
			return
		}
	}
	*vs = append(*vs, errs.Violation{Field: field, Rule: rule})
}

func (vs violations) err() error {
	return &errs.InvalidBodyError{Details: vs}
}
