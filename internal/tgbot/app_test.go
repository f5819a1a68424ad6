package tgbot

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funrun-registration/internal/form"
	"funrun-registration/internal/logger"
	"funrun-registration/internal/models"
	"funrun-registration/internal/submit"
)

type fakeBot struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	fileURL string
	fileErr error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.mu.Lock()
		f.sent = append(f.sent, m)
		f.mu.Unlock()
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	if f.fileErr != nil {
		return "", f.fileErr
	}
	return f.fileURL + "/" + fileID, nil
}

func (f *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeBot) StopReceivingUpdates() {}

func (f *fakeBot) last() tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return tgbotapi.MessageConfig{}
	}
	return f.sent[len(f.sent)-1]
}

type recordingSink struct {
	mu       sync.Mutex
	payloads []models.Payload
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Dispatch(_ context.Context, p models.Payload) error {
	s.mu.Lock()
	s.payloads = append(s.payloads, p)
	s.mu.Unlock()
	return nil
}

const chatID int64 = 42

var proofBytes = []byte("gcash-receipt")

type harness struct {
	t    *testing.T
	app  *App
	bot  *fakeBot
	sink *recordingSink
}

func newHarness(t *testing.T) *harness {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/proof-1" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(proofBytes)
	}))
	t.Cleanup(files.Close)

	bot := &fakeBot{fileURL: files.URL}
	sink := &recordingSink{}
	create := func() *submit.Controller {
		return submit.New(submit.Settings{Endpoint: "https://example.test/exec", Secret: "s3cret"}, form.NewStore(), sink)
	}
	return &harness{t: t, app: newApp(bot, "Fun Run", create, logger.Nop()), bot: bot, sink: sink}
}

func (h *harness) say(text string) string {
	h.t.Helper()
	require.NoError(h.t, h.app.handleMessage(context.Background(), &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}))
	h.app.wg.Wait()
	return h.bot.last().Text
}

func (h *harness) press(data string) string {
	h.t.Helper()
	q := &tgbotapi.CallbackQuery{ID: "cb", Data: data, Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}}}
	require.NoError(h.t, h.app.handleCallback(context.Background(), q))
	h.app.wg.Wait()
	return h.bot.last().Text
}

func (h *harness) upload() string {
	h.t.Helper()
	m := &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Document: &tgbotapi.Document{FileID: "proof-1", FileName: "gcash.png", MimeType: "image/png", FileSize: len(proofBytes)},
	}
	require.NoError(h.t, h.app.handleMessage(context.Background(), m))
	h.app.wg.Wait()
	return h.bot.last().Text
}

func (h *harness) fillUntilPayment(contact string) {
	h.say("/start")
	h.say("03/07/2026")
	h.say("Juan Dela Cruz")
	h.say("34")
	h.say("Poblacion, Mapandan")
	assert.Equal(h.t, prompt(stepOtherCategory), h.press("cat:Other"))
	h.say("BFP")
	h.say(contact)
	assert.Equal(h.t, prompt(stepShirtSize), h.say("-"))
	assert.Equal(h.t, prompt(stepPayment), h.press("size:M"))
}

func TestConversationSubmitsAndResets(t *testing.T) {
	h := newHarness(t)
	h.fillUntilPayment("0917-123-4567")

	assert.Equal(t, submit.MessageSubmitted, h.upload())
	require.Len(t, h.sink.payloads, 1)
	p := h.sink.payloads[0]
	assert.Equal(t, "03/07/2026", p.Date)
	assert.Equal(t, "OTHER: BFP", p.Category)
	assert.Equal(t, "09171234567", p.ContactNumber)
	assert.Empty(t, p.EmergencyName)
	assert.Equal(t, "M", p.ShirtSize)
	assert.Equal(t, "gcash.png", p.Payment.Name)
	assert.Equal(t, "image/png", p.Payment.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(proofBytes), p.Payment.Base64)

	assert.Contains(t, h.press("notice:ok"), "Submit another one?")
	assert.Contains(t, h.say("no"), "Thank you!")

	c := h.app.chat(chatID)
	require.NotNil(t, c)
	assert.True(t, c.ctrl.Store().Snapshot().IsEmpty())
	assert.Equal(t, "Send /start to register.", h.say("hello"))
}

func TestConversationAnotherRestarts(t *testing.T) {
	h := newHarness(t)
	h.fillUntilPayment("09171234567")
	h.upload()
	h.press("notice:ok")

	assert.Equal(t, prompt(stepDate), h.press("notice:yes"))
	assert.True(t, h.app.chat(chatID).ctrl.Store().Snapshot().IsEmpty())
}

func TestConversationReasksFailingField(t *testing.T) {
	h := newHarness(t)
	h.fillUntilPayment("0917")

	assert.Equal(t, "Error ⚠️\n"+form.ErrContactLength.Message, h.upload())
	assert.Empty(t, h.sink.payloads)

	assert.Equal(t, prompt(stepContact), h.press("notice:ok"))
	assert.Equal(t, submit.MessageSubmitted, h.say("09171234567"))
	require.Len(t, h.sink.payloads, 1)
	assert.Equal(t, "09171234567", h.sink.payloads[0].ContactNumber)
}

func TestConversationHints(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "Send /start to register.", h.say("hi"))

	h.say("/start")
	h.say("next friday")
	h.bot.mu.Lock()
	hint := h.bot.sent[len(h.bot.sent)-2].Text
	h.bot.mu.Unlock()
	assert.Equal(t, "Please send the date as MM/DD/YYYY.", hint)
	assert.Equal(t, prompt(stepDate), h.bot.last().Text)

	assert.Contains(t, h.say("/cancel"), "cancelled")
	assert.Nil(t, h.app.chat(chatID))
}

func TestCategoryKeyboard(t *testing.T) {
	kb := choiceKeyboard("cat:", []string{"MEC", "LGU", "Other"}, 2)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Len(t, kb.InlineKeyboard[0], 2)
	require.NotNil(t, kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "cat:Other", *kb.InlineKeyboard[1][0].CallbackData)
}

func TestUnreadableUploadIsAnswered(t *testing.T) {
	h := newHarness(t)
	h.fillUntilPayment("09171234567")
	h.bot.fileErr = errors.New("Bad Request: file is too big")

	assert.Equal(t, prompt(stepPayment), h.upload())
	h.bot.mu.Lock()
	hint := h.bot.sent[len(h.bot.sent)-2].Text
	h.bot.mu.Unlock()
	assert.Contains(t, hint, "Could not read that file")
	assert.Empty(t, h.sink.payloads)
	assert.Equal(t, stepPayment, h.app.chat(chatID).step)

	h.bot.fileErr = nil
	assert.Equal(t, submit.MessageSubmitted, h.upload())
}
