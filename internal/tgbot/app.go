package tgbot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"funrun-registration/internal/models"
	"funrun-registration/internal/notify"
	"funrun-registration/internal/submit"
	"funrun-registration/internal/util"
)

// botAPI is the part of *tgbotapi.BotAPI the app uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type App struct {
	bot    botAPI
	log    *zap.SugaredLogger
	files  *resty.Client
	title  string
	create func() *submit.Controller

	mu    sync.Mutex
	chats map[int64]*chat
	wg    sync.WaitGroup
}

// chat is one registration conversation.
type chat struct {
	ctrl    *submit.Controller
	step    step
	fixing  bool
	lastErr error
}

func New(token, title string, create func() *submit.Controller, log *zap.SugaredLogger) (*App, error) {
	b, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	b.Debug = false
	return newApp(b, title, create, log), nil
}

func newApp(bot botAPI, title string, create func() *submit.Controller, log *zap.SugaredLogger) *App {
	return &App{
		bot:    bot,
		log:    log,
		files:  resty.New(),
		title:  title,
		create: create,
		chats:  map[int64]*chat{},
	}
}

func (a *App) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := a.bot.GetUpdatesChan(u)
	defer a.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			a.wg.Wait()
			return ctx.Err()
		case upd := <-updates:
			if upd.Message != nil {
				if err := a.handleMessage(ctx, upd.Message); err != nil {
					a.log.Warnw("handle message", "chat", upd.Message.Chat.ID, "error", err)
				}
			} else if upd.CallbackQuery != nil {
				if err := a.handleCallback(ctx, upd.CallbackQuery); err != nil {
					a.log.Warnw("handle callback", "error", err)
				}
			}
		}
	}
}

func (a *App) SendText(chatID int64, text string) error {
	_, err := a.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (a *App) chat(id int64) *chat {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chats[id]
}

// ---------- Message handling ----------

func (a *App) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	chatID := m.Chat.ID
	txt := strings.TrimSpace(m.Text)

	if strings.HasPrefix(txt, "/start") {
		c := &chat{ctrl: a.create(), step: stepDate}
		a.mu.Lock()
		a.chats[chatID] = c
		a.mu.Unlock()
		if err := a.SendText(chatID, "Welcome to "+a.title+" registration! Send /cancel at any time to start over."); err != nil {
			return err
		}
		return a.ask(chatID, stepDate)
	}
	if strings.HasPrefix(txt, "/cancel") {
		a.mu.Lock()
		delete(a.chats, chatID)
		a.mu.Unlock()
		return a.SendText(chatID, "Registration cancelled. Send /start to begin again.")
	}

	c := a.chat(chatID)
	if c == nil || c.step == stepIdle {
		return a.SendText(chatID, "Send /start to register.")
	}
	if c.ctrl.Busy() {
		return a.SendText(chatID, "Submitting... please wait.")
	}

	if n := c.ctrl.Notification(); n.Open() {
		return a.replyToNotice(ctx, chatID, c, n, txt)
	}

	if strings.HasPrefix(txt, "/submit") {
		if c.step != stepReview {
			return a.ask(chatID, c.step)
		}
		a.submit(ctx, chatID, c)
		return nil
	}

	if c.step == stepReview {
		return a.SendText(chatID, "Send /submit to try again, or /cancel to start over.")
	}

	if c.step == stepPayment {
		f, ok, err := a.paymentFile(m)
		if err != nil {
			a.log.Warnw("payment file unavailable", "chat", chatID, "error", err)
			if err := a.SendText(chatID, "Could not read that file. Please send it again as a photo or a file under 5MB."); err != nil {
				return err
			}
			return a.ask(chatID, stepPayment)
		}
		if ok {
			c.ctrl.Store().ChoosePaymentFile(f)
			a.submit(ctx, chatID, c)
			return nil
		}
	}

	return a.answer(ctx, chatID, c, txt)
}

func (a *App) answer(ctx context.Context, chatID int64, c *chat, txt string) error {
	next, hint := answer(c.ctrl.Store(), c.step, txt)
	if hint != "" {
		if err := a.SendText(chatID, hint); err != nil {
			return err
		}
		return a.ask(chatID, c.step)
	}
	if c.fixing && !followUp(next) {
		a.submit(ctx, chatID, c)
		return nil
	}
	c.step = next
	return a.ask(chatID, next)
}

func (a *App) replyToNotice(ctx context.Context, chatID int64, c *chat, n notify.Notification, txt string) error {
	if n.Stage == notify.StageConfirmReset {
		yes, ok := util.ParseYesNo(txt)
		if !ok {
			return a.sendConfirm(chatID)
		}
		return a.decide(chatID, c, yes)
	}
	if strings.EqualFold(txt, "ok") {
		return a.acknowledge(chatID, c)
	}
	return a.sendNotice(chatID, n)
}

// paymentFile reads a photo or document from m. The largest photo size is
// used.
func (a *App) paymentFile(m *tgbotapi.Message) (*models.PaymentFile, bool, error) {
	var f models.PaymentFile
	var fileID string
	switch {
	case m.Document != nil:
		fileID = m.Document.FileID
		f.Name = m.Document.FileName
		f.MIMEType = m.Document.MimeType
		f.Size = int64(m.Document.FileSize)
	case len(m.Photo) > 0:
		p := m.Photo[len(m.Photo)-1]
		fileID = p.FileID
		f.Name = "photo.jpg"
		f.MIMEType = "image/jpeg"
		f.Size = int64(p.FileSize)
	default:
		return nil, false, nil
	}
	if f.Name == "" {
		f.Name = "payment"
	}

	url, err := a.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, false, err
	}
	f.Source = remoteFile{client: a.files, url: url}
	return &f, true, nil
}

// submit runs the attempt in the background and posts its notification.
func (a *App) submit(ctx context.Context, chatID int64, c *chat) {
	c.step = stepReview
	c.fixing = false

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		out, err := c.ctrl.Submit(ctx)
		if err != nil {
			a.log.Debugw("submit ignored", "chat", chatID, "reason", err)
			return
		}
		a.mu.Lock()
		c.lastErr = out.Err
		a.mu.Unlock()
		if err := a.sendNotice(chatID, c.ctrl.Notification()); err != nil {
			a.log.Warnw("send notification", "chat", chatID, "error", err)
		}
	}()
}

// ---------- Callback handling ----------

func (a *App) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	_, _ = a.bot.Request(tgbotapi.NewCallback(q.ID, ""))
	if q.Message == nil {
		return nil
	}
	chatID := q.Message.Chat.ID

	c := a.chat(chatID)
	if c == nil {
		return a.SendText(chatID, "Send /start to register.")
	}
	if c.ctrl.Busy() {
		return nil
	}

	kind, value, _ := strings.Cut(q.Data, ":")
	switch kind {
	case "cat":
		if c.step != stepCategory {
			return nil
		}
		return a.answer(ctx, chatID, c, value)
	case "size":
		if c.step != stepShirtSize {
			return nil
		}
		return a.answer(ctx, chatID, c, value)
	case "notice":
		n := c.ctrl.Notification()
		switch {
		case value == "ok" && n.Stage == notify.StageMessage:
			return a.acknowledge(chatID, c)
		case value == "yes" || value == "no":
			return a.decide(chatID, c, value == "yes")
		}
	}
	return nil
}

func (a *App) acknowledge(chatID int64, c *chat) error {
	n := c.ctrl.Acknowledge()
	if n.Stage == notify.StageConfirmReset {
		return a.sendConfirm(chatID)
	}

	a.mu.Lock()
	cause := c.lastErr
	a.mu.Unlock()
	if cause == nil {
		return nil
	}

	if st := stepFor(cause); st != stepIdle {
		c.step = st
		c.fixing = true
		return a.ask(chatID, st)
	}
	return a.SendText(chatID, "Send /submit to try again, or /cancel to start over.")
}

func (a *App) decide(chatID int64, c *chat, another bool) error {
	d := submit.DecisionDone
	if another {
		d = submit.DecisionAnother
	}
	if err := c.ctrl.Decide(d); err != nil {
		if errors.Is(err, submit.ErrNoDecision) {
			return nil
		}
		return err
	}

	c.fixing = false
	if another {
		c.step = stepDate
		if err := a.SendText(chatID, "New registration."); err != nil {
			return err
		}
		return a.ask(chatID, stepDate)
	}
	c.step = stepIdle
	return a.SendText(chatID, "Thank you! Send /start to register someone else.")
}

// ---------- Rendering ----------

func (a *App) ask(chatID int64, st step) error {
	msg := tgbotapi.NewMessage(chatID, prompt(st))
	switch st {
	case stepCategory:
		labels := make([]string, 0, len(models.Sections)+1)
		for _, s := range models.Sections {
			labels = append(labels, string(s))
		}
		msg.ReplyMarkup = choiceKeyboard("cat:", append(labels, models.SectionOtherLabel), 2)
	case stepShirtSize:
		labels := make([]string, 0, len(models.Sizes)+1)
		for _, s := range models.Sizes {
			labels = append(labels, string(s))
		}
		msg.ReplyMarkup = choiceKeyboard("size:", append(labels, models.SizeOtherLabel), 3)
	}
	_, err := a.bot.Send(msg)
	return err
}

func choiceKeyboard(prefix string, labels []string, perRow int) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	var row []tgbotapi.InlineKeyboardButton
	for _, l := range labels {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(l, prefix+l))
		if len(row) == perRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (a *App) sendNotice(chatID int64, n notify.Notification) error {
	if !n.Open() {
		return nil
	}
	if n.Stage == notify.StageConfirmReset {
		return a.sendConfirm(chatID)
	}
	text := n.Message
	if n.Kind == notify.KindError {
		text = "Error ⚠️\n" + n.Message
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("OK", "notice:ok"),
		),
	)
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) sendConfirm(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Submit another one?\nDo you want to submit another registration?")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes", "notice:yes"),
			tgbotapi.NewInlineKeyboardButtonData("No", "notice:no"),
		),
	)
	_, err := a.bot.Send(msg)
	return err
}
