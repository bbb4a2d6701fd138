// Package chat implements the conversational tool session. A session keeps
// its transcript in the history item it owns and supports study mode
// (tutoring system instruction) and research mode (web-grounded answers).
package chat

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"

	"genstudio/pkg/adapter"
	"genstudio/pkg/model"
	"genstudio/pkg/repository"
	"genstudio/pkg/retry"
	"genstudio/pkg/usecase"
	"genstudio/pkg/utils/logging"
)

const studyInstruction = "You are a patient tutor. Do not answer directly; " +
	"guide the user toward the answer with questions and hints, one step at a time."

const researchInstruction = "Ground your answer in current web results and " +
	"cite the sources you used."

// Session manages one interactive chat conversation
type Session struct {
	repo   repository.Repository
	gemini adapter.Gemini
	gate   *usecase.Gate

	itemID model.HistoryID
	data   *model.ChatData
}

// NewInput contains parameters for creating a chat session
type NewInput struct {
	Repo   repository.Repository
	Gemini adapter.Gemini

	// ItemID continues an existing conversation when set
	ItemID *model.HistoryID

	StudyMode    bool
	ResearchMode bool

	GateOptions []retry.Option
}

func New(ctx context.Context, input NewInput) (*Session, error) {
	s := &Session{
		repo:   input.Repo,
		gemini: input.Gemini,
		gate:   usecase.NewGate(input.GateOptions...),
		data: &model.ChatData{
			StudyMode:    input.StudyMode,
			ResearchMode: input.ResearchMode,
		},
	}

	if input.ItemID != nil {
		item, err := input.Repo.GetItem(ctx, *input.ItemID)
		if err != nil {
			return nil, err
		}
		if item.Type != model.ToolChat {
			return nil, goerr.Wrap(model.ErrInvalidItem, "item is not a chat session", goerr.V("type", item.Type))
		}
		s.itemID = item.ID
		s.data = item.Chat
	}

	return s, nil
}

// Send runs one conversation turn. The user message joins the transcript
// before the remote call and is removed again only when that call fails.
func (s *Session) Send(ctx context.Context, message string) (*model.ChatMessage, error) {
	if message == "" {
		return nil, goerr.Wrap(model.ErrInvalidItem, "message is empty")
	}

	if err := s.gate.Begin(); err != nil {
		return nil, err
	}
	defer s.gate.End()

	s.data.Messages = append(s.data.Messages, &model.ChatMessage{
		Role: model.RoleUser,
		Text: message,
	})

	resp, err := s.gemini.GenerateContent(ctx, s.contents(), s.config())
	if err != nil {
		s.data.Messages = s.data.Messages[:len(s.data.Messages)-1]
		logging.From(ctx).Warn("chat turn failed", "error", err)
		return nil, s.gate.HandleFailure(err, nil, nil)
	}

	reply, err := replyFromResponse(resp)
	if err != nil {
		s.data.Messages = s.data.Messages[:len(s.data.Messages)-1]
		return nil, err
	}

	s.data.Messages = append(s.data.Messages, reply)

	if err := s.saveItem(ctx, message); err != nil {
		return nil, err
	}
	return reply, nil
}

// contents converts the stored transcript into the wire format
func (s *Session) contents() []*genai.Content {
	contents := make([]*genai.Content, 0, len(s.data.Messages))
	for _, msg := range s.data.Messages {
		var role genai.Role = genai.RoleUser
		if msg.Role == model.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Text, role))
	}
	return contents
}

func (s *Session) config() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	instruction := ""
	if s.data.StudyMode {
		instruction = studyInstruction
	}
	if s.data.ResearchMode {
		if instruction != "" {
			instruction += "\n\n"
		}
		instruction += researchInstruction
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if instruction != "" {
		config.SystemInstruction = genai.NewContentFromText(instruction, "")
	}
	return config
}

func replyFromResponse(resp *genai.GenerateContentResponse) (*model.ChatMessage, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, goerr.Wrap(adapter.ErrEmptyResponse, "chat response has no candidates")
	}
	candidate := resp.Candidates[0]

	text := ""
	for _, part := range candidate.Content.Parts {
		text += part.Text
	}
	if text == "" {
		return nil, goerr.Wrap(adapter.ErrEmptyResponse, "chat response has no text")
	}

	reply := &model.ChatMessage{
		Role: model.RoleModel,
		Text: text,
	}

	if candidate.GroundingMetadata != nil {
		for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil {
				continue
			}
			reply.Sources = append(reply.Sources, &model.Source{
				URI:   chunk.Web.URI,
				Title: chunk.Web.Title,
			})
		}
	}

	return reply, nil
}

func (s *Session) saveItem(ctx context.Context, firstMessage string) error {
	if s.itemID == "" {
		item, err := model.NewHistoryItem(defaultTitle(firstMessage), s.data)
		if err != nil {
			return err
		}
		if err := s.repo.PutItem(ctx, item); err != nil {
			return err
		}
		s.itemID = item.ID
		return nil
	}

	item, err := s.repo.GetItem(ctx, s.itemID)
	if err != nil {
		return err
	}
	if err := item.SetData(s.data); err != nil {
		return err
	}
	return s.repo.PutItem(ctx, item)
}

// Messages is a read-only view of the transcript
func (s *Session) Messages() []*model.ChatMessage {
	return s.data.Messages
}

// SetStudyMode toggles the tutoring instruction for following turns
func (s *Session) SetStudyMode(on bool) {
	s.data.StudyMode = on
}

// SetResearchMode toggles web grounding for following turns
func (s *Session) SetResearchMode(on bool) {
	s.data.ResearchMode = on
}

func (s *Session) ItemID() model.HistoryID {
	return s.itemID
}

func (s *Session) Gate() *usecase.Gate {
	return s.gate
}

func (s *Session) Close() {
	s.gate.Close()
}

func defaultTitle(text string) string {
	const maxTitle = 40
	runes := []rune(text)
	if len(runes) <= maxTitle {
		return text
	}
	return string(runes[:maxTitle]) + "..."
}
