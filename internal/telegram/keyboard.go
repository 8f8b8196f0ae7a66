package telegram

import tele "gopkg.in/telebot.v4"

// ReplyKeyboard builds a reply keyboard from rows of button labels.
// Empty rows yield a nil markup so the current keyboard stays on screen.
func ReplyKeyboard(rows [][]string) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	var keyboard []tele.Row
	for _, row := range rows {
		var buttons []tele.Btn
		for _, label := range row {
			buttons = append(buttons, markup.Text(label))
		}
		keyboard = append(keyboard, markup.Row(buttons...))
	}
	markup.Reply(keyboard...)
	return markup
}
