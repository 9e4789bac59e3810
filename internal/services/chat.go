package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bloom-backend/internal/logger"
	"bloom-backend/internal/models"
)

// SiteContext describes the studio to the remote model.
const SiteContext = `
Brand: Bloom Wedding Photography.
Primary pages: /services, /booking, /gallery, /contact.
What we do: Wedding, engagement, and event photography with creative, candid storytelling.
Guidance:
- Services & pricing: Explain packages at /services. Invite sharing date/event details for tailored quote.
- Booking: Guide to /booking to check availability and submit details.
- Our work: Describe our natural, timeless style and direct to /gallery to view photos.
- Event suggestions: Offer ideas for timelines, shot lists, decor lighting tips, and seasonal suggestions.
Tone: Warm, professional, concise. Always include relevant internal links where helpful.
`

const maxChatImages = 4

// ReplyGenerator produces a reply for an utterance given the site context.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, utterance, siteContext string) (string, error)
}

type ChatService struct {
	generator ReplyGenerator
	images    []string
	timeout   time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// NewChatService builds the resolver. generator may be nil, in which case
// only the keyword rules answer.
func NewChatService(generator ReplyGenerator, images []string, timeout time.Duration, log *logger.Logger) *ChatService {
	return &ChatService{
		generator: generator,
		images:    append([]string(nil), images...),
		timeout:   timeout,
		log:       log.With("service", "ChatService"),
		now:       time.Now,
	}
}

// NewUserMessage wraps an utterance as the user side of the exchange.
func (s *ChatService) NewUserMessage(utterance string) models.ChatMessage {
	return models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      models.ChatRoleUser,
		Content:   strings.TrimSpace(utterance),
		Timestamp: s.now().UnixMilli(),
	}
}

// ResolveChatReply always returns a displayable bot message.
func (s *ChatService) ResolveChatReply(ctx context.Context, utterance string) models.ChatMessage {
	utterance = strings.TrimSpace(utterance)

	text, source := s.baseReply(ctx, utterance)

	var images []string
	if wantsImages(utterance) {
		n := min(maxChatImages, len(s.images))
		images = append([]string(nil), s.images[:n]...)
		text += galleryPointer
	}

	s.log.Debug("chat reply resolved", "source", source, "images", len(images))

	return models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      models.ChatRoleBot,
		Content:   text,
		Timestamp: s.now().UnixMilli(),
		Images:    images,
	}
}

func (s *ChatService) baseReply(ctx context.Context, utterance string) (string, string) {
	if s.generator != nil && utterance != "" {
		reply, err := s.generate(ctx, utterance)
		if err == nil {
			return reply, "remote"
		}
		s.log.Warn("remote chat generation failed, using rules", "error", err)
	}
	rule, reply := classifyUtterance(utterance)
	return reply, rule
}

func (s *ChatService) generate(ctx context.Context, utterance string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reply generator panicked: %v", r)
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	reply, err = s.generator.GenerateReply(ctx, utterance, SiteContext)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrEmptyGeneration
	}
	return reply, nil
}
