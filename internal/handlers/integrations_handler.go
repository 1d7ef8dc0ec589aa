package handlers

import (
	"crypto/subtle"
	"errors"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskhub/internal/logging"
	"taskhub/internal/models"
	"taskhub/internal/services"
)

const (
	webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"
	digestLimit         = 10
)

type IntegrationsHandler struct {
	tg            *services.TelegramService
	links         services.TelegramLinkService
	tasks         services.TaskService
	webhookSecret string
}

func NewIntegrationsHandler(tg *services.TelegramService, links services.TelegramLinkService, tasks services.TaskService, webhookSecret string) *IntegrationsHandler {
	return &IntegrationsHandler{tg: tg, links: links, tasks: tasks, webhookSecret: webhookSecret}
}

// @Summary      Код привязки Telegram
// @Description  Выдаёт одноразовый код; отправьте боту "/link <код>"
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  models.TelegramLink
// @Router       /api/integrations/telegram/link/ [post]
func (h *IntegrationsHandler) RequestTelegramLink(c *gin.Context) {
	link, err := h.links.RequestLink(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err, "tg", "link")
		return
	}
	c.JSON(http.StatusCreated, link)
}

// Webhook handles bot updates. Anything past the secret check is answered 200.
func (h *IntegrationsHandler) Webhook(c *gin.Context) {
	if h.webhookSecret != "" {
		got := c.GetHeader(webhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
	}

	var up tgbotapi.Update
	if err := c.ShouldBindJSON(&up); err != nil || up.Message == nil || up.Message.Chat == nil {
		if err != nil {
			logging.Logger.Infof("[tg][webhook] bind json error: %v", err)
		}
		c.Status(http.StatusOK)
		return
	}

	chatID := up.Message.Chat.ID
	fields := strings.Fields(up.Message.Text)
	if len(fields) == 0 {
		c.Status(http.StatusOK)
		return
	}
	// "/link@my_bot CODE" -> "/link"
	command := strings.SplitN(fields[0], "@", 2)[0]
	arg := strings.Join(fields[1:], " ")
	logging.Logger.Debugf("[tg][webhook] chatID=%d command=%q", chatID, command)

	switch command {
	case "/start":
		if arg != "" {
			// deep link: t.me/<bot>?start=<code>
			h.link(c, chatID, arg)
			break
		}
		h.reply(chatID, "Hi! To link your account, request a code in taskhub and send:\n<code>/link &lt;code&gt;</code>")
	case "/link":
		h.link(c, chatID, arg)
	default:
		h.reply(chatID, "Unknown command. Use <code>/link &lt;code&gt;</code>.")
	}
	c.Status(http.StatusOK)
}

func (h *IntegrationsHandler) link(c *gin.Context, chatID int64, code string) {
	ctx := c.Request.Context()
	user, err := h.links.Link(ctx, code, chatID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidLinkCode) {
			h.reply(chatID, "The code is invalid or expired. Request a new one.")
			return
		}
		logging.Logger.Errorf("[tg][webhook][link][err] chatID=%d: %v", chatID, err)
		h.reply(chatID, "Could not link the account, try again later.")
		return
	}
	h.reply(chatID, "Done! "+html.EscapeString(user.DisplayName())+", you will get task notifications here.")

	if h.tasks == nil {
		return
	}
	tasks, err := h.tasks.AssignedTo(ctx, user.ID)
	if err != nil {
		logging.Logger.Warnf("[tg][webhook][digest][err] userID=%d: %v", user.ID, err)
		return
	}
	h.reply(chatID, taskDigest(tasks))
}

func (h *IntegrationsHandler) reply(chatID int64, text string) {
	_ = h.tg.SendMessage(chatID, text)
}

// taskDigest lists up to digestLimit tasks that are not completed.
func taskDigest(tasks []models.Task) string {
	var active []models.Task
	for _, t := range tasks {
		if t.Status != models.TaskCompleted {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		return "You have no active tasks. 👍"
	}
	var b strings.Builder
	b.WriteString("📝 Your active tasks:\n")
	for i, t := range active {
		if i == digestLimit {
			b.WriteString("…and " + strconv.Itoa(len(active)-digestLimit) + " more\n")
			break
		}
		b.WriteString("• " + html.EscapeString(t.Title) + " (" + t.Status.Label() + ", " + t.Priority.Label() + ") [due: " + t.DueDate.Format("2006-01-02 15:04") + "]\n")
	}
	return b.String()
}
