package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrItemNotFound  = goerr.New("history item not found")
	ErrInvalidItem   = goerr.New("invalid history item")
	ErrInvalidSpeed  = goerr.New("speech speed out of range")
	ErrDuplicateTask = goerr.New("duplicate task id")
)

type HistoryID string

// NewHistoryID generates a new unique HistoryID
func NewHistoryID() HistoryID {
	return HistoryID(uuid.New().String())
}

// ToolType identifies which tool produced a history item
type ToolType string

const (
	ToolChat  ToolType = "chat"
	ToolVoice ToolType = "voice"
	ToolImage ToolType = "image"
	ToolVideo ToolType = "video"
	ToolTodo  ToolType = "todo"
)

// Validate checks if the tool type is one of the known tools
func (t ToolType) Validate() error {
	switch t {
	case ToolChat, ToolVoice, ToolImage, ToolVideo, ToolTodo:
		return nil
	default:
		return goerr.New("invalid tool type", goerr.V("type", t))
	}
}

// HistoryItem is the root aggregate persisted for one tool session.
// Exactly one payload pointer is non-nil and it must match Type.
type HistoryItem struct {
	ID        HistoryID `json:"id" firestore:"id"`
	Type      ToolType  `json:"type" firestore:"type"`
	Title     string    `json:"title" firestore:"title"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`

	// Do not save payloads in Firestore documents due to size limitation;
	// they go through the storage adapter as serialized JSON instead.
	Voice *VoiceData `json:"voice,omitempty" firestore:"-"`
	Image *ImageData `json:"image,omitempty" firestore:"-"`
	Video *VideoData `json:"video,omitempty" firestore:"-"`
	Chat  *ChatData  `json:"chat,omitempty" firestore:"-"`
	Todo  *TodoData  `json:"todo,omitempty" firestore:"-"`
}

// VoiceData holds the latest text-to-speech request and its rendered audio
type VoiceData struct {
	Text        string  `json:"text"`
	Voice       string  `json:"voice"`
	Speed       float64 `json:"speed"`
	AudioBase64 string  `json:"audioBase64"`
	// SampleRate is the PCM rate of the stored audio. Items saved before
	// the rate was recorded carry zero and replay at 24000 Hz.
	SampleRate int `json:"sampleRate,omitempty"`
}

// Validate checks the speech speed range accepted by the voice tool
func (v *VoiceData) Validate() error {
	if v.Speed < 0.5 || v.Speed > 1.5 {
		return goerr.Wrap(ErrInvalidSpeed, "speed must be in [0.5, 1.5]", goerr.V("speed", v.Speed))
	}
	return nil
}

type ImageData struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
	ImageURL    string `json:"imageUrl"` // data URI
}

type VideoData struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
	VideoBase64 string `json:"videoBase64"`
}

type ChatRole string

const (
	RoleUser   ChatRole = "user"
	RoleModel  ChatRole = "model"
	RoleSystem ChatRole = "system"
)

type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type ChatMessage struct {
	Role     ChatRole  `json:"role"`
	Text     string    `json:"text"`
	ImageURL string    `json:"imageUrl,omitempty"`
	Sources  []*Source `json:"sources,omitempty"`
}

type ChatData struct {
	StudyMode    bool           `json:"studyMode"`
	ResearchMode bool           `json:"researchMode"`
	Messages     []*ChatMessage `json:"messages"`
}

type TodoItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type TodoData struct {
	Tasks []*TodoItem `json:"tasks"`
}

// Validate checks task id uniqueness within the list
func (d *TodoData) Validate() error {
	seen := make(map[string]struct{}, len(d.Tasks))
	for _, task := range d.Tasks {
		if _, ok := seen[task.ID]; ok {
			return goerr.Wrap(ErrDuplicateTask, "task id must be unique within a list", goerr.V("task_id", task.ID))
		}
		seen[task.ID] = struct{}{}
	}
	return nil
}

// NewHistoryItem creates an item with a fresh ID and the given payload.
// The payload must be one of *VoiceData, *ImageData, *VideoData, *ChatData
// or *TodoData.
func NewHistoryItem(title string, payload any) (*HistoryItem, error) {
	now := time.Now()
	item := &HistoryItem{
		ID:        NewHistoryID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch p := payload.(type) {
	case *VoiceData:
		item.Type = ToolVoice
		item.Voice = p
	case *ImageData:
		item.Type = ToolImage
		item.Image = p
	case *VideoData:
		item.Type = ToolVideo
		item.Video = p
	case *ChatData:
		item.Type = ToolChat
		item.Chat = p
	case *TodoData:
		item.Type = ToolTodo
		item.Todo = p
	default:
		return nil, goerr.Wrap(ErrInvalidItem, "unsupported payload type")
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// Validate checks that exactly one payload is set and that it matches Type
func (x *HistoryItem) Validate() error {
	if x.ID == "" {
		return goerr.Wrap(ErrInvalidItem, "item id is empty")
	}
	if err := x.Type.Validate(); err != nil {
		return err
	}

	count := 0
	for _, set := range []bool{x.Voice != nil, x.Image != nil, x.Video != nil, x.Chat != nil, x.Todo != nil} {
		if set {
			count++
		}
	}
	if count != 1 {
		return goerr.Wrap(ErrInvalidItem, "exactly one payload must be set", goerr.V("count", count))
	}

	match := map[ToolType]bool{
		ToolVoice: x.Voice != nil,
		ToolImage: x.Image != nil,
		ToolVideo: x.Video != nil,
		ToolChat:  x.Chat != nil,
		ToolTodo:  x.Todo != nil,
	}
	if !match[x.Type] {
		return goerr.Wrap(ErrInvalidItem, "payload does not match item type", goerr.V("type", x.Type))
	}

	if x.Voice != nil {
		if err := x.Voice.Validate(); err != nil {
			return err
		}
	}
	if x.Todo != nil {
		if err := x.Todo.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SetData replaces the payload of the item in place. The payload type must
// match the item type; a generation bound to an existing id never changes
// its tool.
func (x *HistoryItem) SetData(payload any) error {
	switch p := payload.(type) {
	case *VoiceData:
		if x.Type != ToolVoice {
			return goerr.Wrap(ErrInvalidItem, "voice payload on non-voice item", goerr.V("type", x.Type))
		}
		x.Voice = p
	case *ImageData:
		if x.Type != ToolImage {
			return goerr.Wrap(ErrInvalidItem, "image payload on non-image item", goerr.V("type", x.Type))
		}
		x.Image = p
	case *VideoData:
		if x.Type != ToolVideo {
			return goerr.Wrap(ErrInvalidItem, "video payload on non-video item", goerr.V("type", x.Type))
		}
		x.Video = p
	case *ChatData:
		if x.Type != ToolChat {
			return goerr.Wrap(ErrInvalidItem, "chat payload on non-chat item", goerr.V("type", x.Type))
		}
		x.Chat = p
	case *TodoData:
		if x.Type != ToolTodo {
			return goerr.Wrap(ErrInvalidItem, "todo payload on non-todo item", goerr.V("type", x.Type))
		}
		x.Todo = p
	default:
		return goerr.Wrap(ErrInvalidItem, "unsupported payload type")
	}

	x.UpdatedAt = time.Now()
	return x.Validate()
}

// UnmarshalJSON decodes an item and rejects payloads inconsistent with Type
func (x *HistoryItem) UnmarshalJSON(data []byte) error {
	type alias HistoryItem
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return goerr.Wrap(err, "failed to unmarshal history item")
	}

	*x = HistoryItem(raw)
	return x.Validate()
}
