package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vendnet/vendops/internal/app/domain/user"
)

// Callback actions. Data is "action" or "action:arg".
const (
	actionMyTasks   = "tasks.mine"
	actionTaskStart = "task.start"
	actionTaskDone  = "task.done"
	actionLevels    = "stock.levels"
	actionLowStock  = "stock.low"
	actionReceive   = "stock.receive"
	actionIssue     = "stock.issue"
	actionMachines  = "machines.list"
	actionSales     = "sales.summary"
	actionPortfolio = "invest.portfolio"
	actionPayouts   = "invest.payouts"
	actionUsers     = "users.list"
)

// sendMenu shows the buttons the user's roles entitle them to.
func (b *Bot) sendMenu(chatID int64, u user.User) {
	var rows [][]tgbotapi.InlineKeyboardButton
	row := func(label, action string) []tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, action))
	}

	if u.HasPermission("tasks", "view") {
		rows = append(rows, row("My tasks", actionMyTasks))
	}
	if u.HasPermission("inventory", "view") {
		rows = append(rows, row("Stock levels", actionLevels))
	}
	if u.HasPermission("inventory", "edit") {
		rows = append(rows,
			row("Low stock", actionLowStock),
			row("Receive stock", actionReceive),
			row("Issue stock", actionIssue))
	}
	if u.HasPermission("machines", "view") {
		rows = append(rows, row("Machines", actionMachines))
	}
	if u.HasPermission("finance", "view") {
		rows = append(rows, row("Sales summary", actionSales))
	}
	if u.HasRole(user.RoleInvestor) || u.HasRole(user.RoleAdmin) {
		rows = append(rows,
			row("My portfolio", actionPortfolio),
			row("My payouts", actionPayouts))
	}
	if u.HasPermission("users", "view") {
		rows = append(rows, row("Users", actionUsers))
	}

	if len(rows) == 0 {
		b.reply(chatID, greeting(u)+" No actions are available for your roles.")
		return
	}
	b.replyMarkup(chatID, greeting(u)+" Pick an action:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// routeAction dispatches a callback button press.
func (b *Bot) routeAction(ctx context.Context, chatID int64, u user.User, data string) {
	action, arg := data, ""
	if i := strings.IndexByte(data, ':'); i >= 0 {
		action, arg = data[:i], data[i+1:]
	}

	switch action {
	case actionMyTasks:
		b.showMyTasks(ctx, chatID, u)
	case actionTaskStart:
		b.startTask(ctx, chatID, u, arg)
	case actionTaskDone:
		b.beginCompleteFlow(ctx, chatID, u, arg)
	case actionLevels:
		b.showLevels(ctx, chatID, u)
	case actionLowStock:
		b.showLowStock(ctx, chatID, u)
	case actionReceive:
		b.beginMovementFlow(ctx, chatID, u, flowReceive)
	case actionIssue:
		b.beginMovementFlow(ctx, chatID, u, flowIssue)
	case actionMachines:
		b.showMachines(ctx, chatID, u)
	case actionSales:
		b.showSalesSummary(ctx, chatID, u)
	case actionPortfolio:
		b.showPortfolio(ctx, chatID, u)
	case actionPayouts:
		b.showPayouts(ctx, chatID, u)
	case actionUsers:
		b.showUsers(ctx, chatID, u)
	default:
		b.sendMenu(chatID, u)
	}
}
