package telegram

import "context"

// getUpdatesRequest is the long-poll request payload.
type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// GetUpdates long-polls for new updates. Offset acknowledges all updates
// below it; timeoutSeconds is the server-side hold time (Telegram caps it
// at 50). Only message and callback_query updates are requested.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]Update, error) {
	req := getUpdatesRequest{
		Offset:         offset,
		Timeout:        timeoutSeconds,
		AllowedUpdates: []string{"message", "callback_query"},
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", req, &updates); err != nil {
		return nil, err
	}

	return updates, nil
}

// SendMessageRequest describes an outgoing message. ReplyMarkup accepts
// *InlineKeyboardMarkup or *ReplyKeyboardMarkup.
type SendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           any    `json:"reply_markup,omitempty"`
}

// SendMessage sends a text message.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	var msg Message
	if err := c.call(ctx, "sendMessage", req, &msg); err != nil {
		return nil, err
	}

	return &msg, nil
}

// EditMessageTextRequest describes an in-place message text edit.
type EditMessageTextRequest struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int64                 `json:"message_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// EditMessageText replaces the text (and optionally the inline keyboard) of
// a previously sent message. Menu navigation edits in place rather than
// sending a new message per page.
func (c *Client) EditMessageText(ctx context.Context, req EditMessageTextRequest) error {
	return c.call(ctx, "editMessageText", req, nil)
}

// editMessageReplyMarkupRequest swaps only the inline keyboard.
type editMessageReplyMarkupRequest struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int64                 `json:"message_id"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// EditMessageReplyMarkup replaces the inline keyboard of a sent message.
// A nil markup removes the keyboard.
func (c *Client) EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup *InlineKeyboardMarkup) error {
	req := editMessageReplyMarkupRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: markup,
	}

	return c.call(ctx, "editMessageReplyMarkup", req, nil)
}

// answerCallbackQueryRequest acknowledges a button press.
type answerCallbackQueryRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
}

// AnswerCallbackQuery acknowledges a button press, clearing the client-side
// loading spinner. Text, if non-empty, is shown as a toast notification.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	req := answerCallbackQueryRequest{
		CallbackQueryID: callbackQueryID,
		Text:            text,
	}

	return c.call(ctx, "answerCallbackQuery", req, nil)
}

// GetMe fetches the bot's own account. Used at startup to verify the token.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return nil, err
	}

	return &me, nil
}
