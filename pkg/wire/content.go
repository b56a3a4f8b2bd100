package wire

import "encoding/json"

// Role identifies who a Content sequence is attributed to.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleSystem Role = "system"
	RoleTool  Role = "tool"
)

// PartKind is the wire discriminator for ContentPart variants.
type PartKind string

const (
	PartText           PartKind = "text"
	PartInlineBlob     PartKind = "inline_blob"
	PartFileRef        PartKind = "file_ref"
	PartFunctionCall   PartKind = "function_call"
	PartFunctionResult PartKind = "function_result"
)

// ContentPart is a tagged variant: Text, InlineBlob, FileRef, FunctionCall,
// or FunctionResult. Every implementation round-trips through Kind() and
// the package-level codec MarshalContentPart/UnmarshalContentPart below.
type ContentPart interface {
	Kind() PartKind
}

// Text is a plain textual content part.
type Text struct {
	Value string
}

func (Text) Kind() PartKind { return PartText }

// InlineBlob is a base64-inlined binary payload.
type InlineBlob struct {
	MIMEType string
	Data     []byte
}

func (InlineBlob) Kind() PartKind { return PartInlineBlob }

// FileRef points at a previously uploaded file resource.
type FileRef struct {
	URI      string
	MIMEType string
}

func (FileRef) Kind() PartKind { return PartFileRef }

// FunctionCall is a brain-issued request to invoke a local tool.
type FunctionCall struct {
	CallID string
	Name   string
	Args   map[string]any
}

func (FunctionCall) Kind() PartKind { return PartFunctionCall }

// FunctionResult carries a tool's outcome back to the brain.
type FunctionResult struct {
	CallID string
	Name   string
	Value  map[string]any
}

func (FunctionResult) Kind() PartKind { return PartFunctionResult }

// Content is a role-tagged sequence of parts, e.g. one user turn or one
// assistant turn.
type Content struct {
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// wireContentPart is the JSON envelope shared by every ContentPart variant.
type wireContentPart struct {
	Type     PartKind        `json:"type"`
	Text     string          `json:"text,omitempty"`
	MIMEType string          `json:"mime_type,omitempty"`
	Data     []byte          `json:"data,omitempty"` // encoding/json base64-encodes []byte
	URI      string          `json:"uri,omitempty"`
	CallID   string          `json:"call_id,omitempty"`
	Name     string          `json:"name,omitempty"`
	Args     map[string]any  `json:"args,omitempty"`
	Value    map[string]any  `json:"value,omitempty"`
}

// MarshalContentPart implements the externally-tagged encoding for a
// ContentPart.
func MarshalContentPart(p ContentPart) ([]byte, error) {
	w := wireContentPart{Type: p.Kind()}
	switch v := p.(type) {
	case Text:
		w.Text = v.Value
	case *Text:
		w.Text = v.Value
	case InlineBlob:
		w.MIMEType = v.MIMEType
		w.Data = v.Data
	case *InlineBlob:
		w.MIMEType = v.MIMEType
		w.Data = v.Data
	case FileRef:
		w.URI = v.URI
		w.MIMEType = v.MIMEType
	case *FileRef:
		w.URI = v.URI
		w.MIMEType = v.MIMEType
	case FunctionCall:
		w.CallID = v.CallID
		w.Name = v.Name
		w.Args = v.Args
	case *FunctionCall:
		w.CallID = v.CallID
		w.Name = v.Name
		w.Args = v.Args
	case FunctionResult:
		w.CallID = v.CallID
		w.Name = v.Name
		w.Value = v.Value
	case *FunctionResult:
		w.CallID = v.CallID
		w.Name = v.Name
		w.Value = v.Value
	default:
		return nil, errTypeMismatch("content_part", "known ContentPart", "unknown")
	}
	return json.Marshal(w)
}

// UnmarshalContentPart decodes one externally-tagged ContentPart.
func UnmarshalContentPart(data []byte) (ContentPart, error) {
	var w wireContentPart
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errMalformed(err)
	}
	switch w.Type {
	case PartText:
		return Text{Value: w.Text}, nil
	case PartInlineBlob:
		return InlineBlob{MIMEType: w.MIMEType, Data: w.Data}, nil
	case PartFileRef:
		return FileRef{URI: w.URI, MIMEType: w.MIMEType}, nil
	case PartFunctionCall:
		if w.Name == "" {
			return nil, errMissingField("function_call.name")
		}
		return FunctionCall{CallID: w.CallID, Name: w.Name, Args: w.Args}, nil
	case PartFunctionResult:
		if w.Name == "" {
			return nil, errMissingField("function_result.name")
		}
		return FunctionResult{CallID: w.CallID, Name: w.Name, Value: w.Value}, nil
	default:
		return nil, errUnknownDiscriminator("type", string(w.Type))
	}
}

// MarshalJSON makes Content itself a valid json.Marshaler despite holding
// an interface slice.
func (c Content) MarshalJSON() ([]byte, error) {
	type alias struct {
		Role  Role              `json:"role"`
		Parts []json.RawMessage `json:"parts"`
	}
	a := alias{Role: c.Role, Parts: make([]json.RawMessage, len(c.Parts))}
	for i, p := range c.Parts {
		raw, err := MarshalContentPart(p)
		if err != nil {
			return nil, err
		}
		a.Parts[i] = raw
	}
	return json.Marshal(a)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var a struct {
		Role  Role              `json:"role"`
		Parts []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return errMalformed(err)
	}
	c.Role = a.Role
	c.Parts = make([]ContentPart, 0, len(a.Parts))
	for _, raw := range a.Parts {
		part, err := UnmarshalContentPart(raw)
		if err != nil {
			return err
		}
		c.Parts = append(c.Parts, part)
	}
	return nil
}
