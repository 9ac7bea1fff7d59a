package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/store"
	"github.com/m3rciful/refbot/core/ui"
)

// Dialog names.
const (
	Complaint      = "complaint"
	Wiki           = "wiki"
	Translate      = "translate"
	Weather        = "weather"
	FavoriteAdd    = "favorite_add"
	FavoriteRemove = "favorite_remove"
)

const (
	// SummaryLimit is the number of runes of an article summary shown to the user.
	SummaryLimit = 1000
	// MaxWikiQuery bounds encyclopedia queries in runes.
	MaxWikiQuery = 300
	// TargetLanguage is the translation target.
	TargetLanguage = "en"

	defaultCallTimeout = 10 * time.Second
)

// Services are the collaborators the built-in dialogs need.
type Services struct {
	Recorder     Recorder
	Encyclopedia Encyclopedia
	Translator   Translator
	Notifier     Notifier

	// CallTimeout bounds each external call; zero means 10s.
	CallTimeout time.Duration
	// NewRef generates complaint reference ids; nil means random UUIDs.
	NewRef func() string
}

func (s Services) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (s Services) ref() string {
	if s.NewRef != nil {
		return s.NewRef()
	}
	return uuid.NewString()
}

// Builtin returns every dialog of the bot wired to svc.
func Builtin(svc Services) []*Dialog {
	return []*Dialog{
		complaintDialog(svc),
		wikiDialog(svc),
		translateDialog(svc),
		weatherDialog(),
		favoriteAddDialog(svc),
		favoriteRemoveDialog(svc),
	}
}

func fixed(text string, kb Keyboard) func(map[string]string) Reply {
	return func(map[string]string) Reply { return Reply{Text: text, Keyboard: kb} }
}

func complaintDialog(svc Services) *Dialog {
	return &Dialog{
		Name: Complaint,
		Steps: []Step{
			{Field: "full_name", Prompt: fixed(ui.AskFullName, KeyboardKeep)},
			{Field: "contact", Prompt: fixed(ui.AskContact, KeyboardKeep)},
			{Field: "complaint_text", Prompt: fixed(ui.AskComplaintText, KeyboardKeep)},
			{
				Field: "decision",
				Prompt: func(data map[string]string) Reply {
					return Reply{
						Text:     fmt.Sprintf(ui.ComplaintSummary, data["full_name"], data["contact"], data["complaint_text"]),
						Keyboard: KeyboardConfirm,
					}
				},
				Exits:     []string{ui.BtnCancel},
				AcceptAny: true,
			},
		},
		Exit: Reply{Text: ui.ComplaintAborted, Keyboard: KeyboardMain},
		Finish: func(ctx context.Context, turn Turn, data map[string]string) (Reply, error) {
			// Only the explicit accept label sends; anything else is treated as cancel.
			if data["decision"] != ui.BtnConfirm {
				logger.LogEvent(ctx, logger.SVCDialogs, slog.LevelInfo, "complaint.cancelled",
					slog.Int64("user_id", turn.UserID),
					slog.String("outcome", "cancelled"),
					slog.String("decision", logger.SanitizeLimit(data["decision"], 32)),
				)
				return Reply{Text: ui.ComplaintAborted, Keyboard: KeyboardMain}, nil
			}
			ref := svc.ref()
			report := fmt.Sprintf(ui.ComplaintReport, data["full_name"], data["contact"], data["complaint_text"], ref)
			callCtx, cancel := svc.callContext(ctx)
			defer cancel()
			if err := svc.Notifier.NotifyAdmin(callCtx, report); err != nil {
				return Reply{}, fmt.Errorf("notify admin: %w", err)
			}
			logger.LogEvent(ctx, logger.SVCDialogs, slog.LevelInfo, "complaint.sent",
				slog.Int64("user_id", turn.UserID),
				slog.String("ref", ref),
			)
			return Reply{Text: fmt.Sprintf(ui.ComplaintSent, ref), Keyboard: KeyboardMain}, nil
		},
	}
}

func validateWikiQuery(value string) error {
	if utf8.RuneCountInString(value) > MaxWikiQuery {
		return &InvalidInput{Message: fmt.Sprintf(ui.WikiQueryTooLong, MaxWikiQuery)}
	}
	return nil
}

func wikiDialog(svc Services) *Dialog {
	return &Dialog{
		Name: Wiki,
		Steps: []Step{
			{Field: "query", Prompt: fixed(ui.AskWikiQuery, KeyboardKeep), Validate: validateWikiQuery},
		},
		Finish: func(ctx context.Context, turn Turn, data map[string]string) (Reply, error) {
			query := data["query"]
			callCtx, cancel := svc.callContext(ctx)
			summary, found, err := svc.Encyclopedia.Lookup(callCtx, query)
			cancel()
			if err != nil {
				logger.LogEvent(ctx, logger.SVCDialogs, slog.LevelWarn, "wiki.lookup_failed",
					slog.Int64("user_id", turn.UserID),
					slog.String("err", err.Error()),
				)
				return Reply{Text: ui.WikiUnavailable}, nil
			}
			if !found {
				return Reply{Text: ui.WikiNotFound}, nil
			}
			if err := svc.Recorder.AppendInteraction(ctx, turn.UserID, turn.DisplayName, store.KindWiki, query); err != nil {
				return Reply{}, err
			}
			return Reply{Text: fmt.Sprintf(ui.WikiResult, truncateRunes(summary, SummaryLimit))}, nil
		},
	}
}

func translateDialog(svc Services) *Dialog {
	return &Dialog{
		Name: Translate,
		Steps: []Step{
			{Field: "text", Prompt: fixed(ui.AskTranslateText, KeyboardKeep)},
		},
		Finish: func(ctx context.Context, turn Turn, data map[string]string) (Reply, error) {
			text := data["text"]
			callCtx, cancel := svc.callContext(ctx)
			translated, err := svc.Translator.Translate(callCtx, text, TargetLanguage)
			cancel()
			if err != nil {
				logger.LogEvent(ctx, logger.SVCDialogs, slog.LevelWarn, "translate.failed",
					slog.Int64("user_id", turn.UserID),
					slog.String("err", err.Error()),
				)
				return Reply{Text: ui.TranslateUnavailable}, nil
			}
			if err := svc.Recorder.AppendInteraction(ctx, turn.UserID, turn.DisplayName, store.KindTranslate, text); err != nil {
				return Reply{}, err
			}
			return Reply{Text: fmt.Sprintf(ui.TranslateResult, translated)}, nil
		},
	}
}

func weatherDialog() *Dialog {
	return &Dialog{
		Name: Weather,
		Steps: []Step{
			{Field: "city", Prompt: fixed(ui.AskCity, KeyboardKeep)},
		},
		Finish: func(_ context.Context, _ Turn, data map[string]string) (Reply, error) {
			return Reply{Text: fmt.Sprintf(ui.WeatherResult, data["city"])}, nil
		},
	}
}

func favoriteAddDialog(svc Services) *Dialog {
	return &Dialog{
		Name: FavoriteAdd,
		Steps: []Step{
			{Field: "text", Prompt: fixed(ui.AskFavoriteAdd, KeyboardKeep)},
		},
		Finish: func(ctx context.Context, turn Turn, data map[string]string) (Reply, error) {
			if err := svc.Recorder.AddFavorite(ctx, turn.UserID, store.KindGeneral, data["text"]); err != nil {
				return Reply{}, err
			}
			return Reply{Text: ui.FavoriteAdded}, nil
		},
	}
}

func favoriteRemoveDialog(svc Services) *Dialog {
	return &Dialog{
		Name: FavoriteRemove,
		Steps: []Step{
			{Field: "text", Prompt: fixed(ui.AskFavoriteRemove, KeyboardKeep)},
		},
		Finish: func(ctx context.Context, turn Turn, data map[string]string) (Reply, error) {
			removed, err := svc.Recorder.RemoveFavorite(ctx, turn.UserID, data["text"])
			if err != nil {
				return Reply{}, err
			}
			logger.LogEvent(ctx, logger.SVCDialogs, slog.LevelDebug, "favorite.removed",
				slog.Int64("user_id", turn.UserID),
				slog.Int64("rows", removed),
			)
			return Reply{Text: ui.FavoriteRemoved}, nil
		},
	}
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit])
}
