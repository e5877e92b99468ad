package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	domaininv "github.com/vendnet/vendops/internal/app/domain/inventory"
	"github.com/vendnet/vendops/internal/app/domain/task"
	"github.com/vendnet/vendops/internal/app/domain/user"
	invsvc "github.com/vendnet/vendops/internal/app/services/inventory"
	taskssvc "github.com/vendnet/vendops/internal/app/services/tasks"
	"github.com/vendnet/vendops/internal/app/storage"
)

// Flow names stored in conversation state.
const (
	flowReceive  = "receive"
	flowIssue    = "issue"
	flowComplete = "complete"
)

// defaultWarehouseID is the single warehouse the bot operates on.
const defaultWarehouseID = "main"

// --- operator: tasks ---

func (b *Bot) showMyTasks(ctx context.Context, chatID int64, u user.User) {
	tasks, err := b.app.Tasks.List(ctx, storage.TaskFilter{AssignedToID: u.ID})
	if err != nil {
		b.failed(chatID, err)
		return
	}
	var open []task.Task
	for _, t := range tasks {
		if !t.Status.Terminal() {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		b.reply(chatID, "No open tasks.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var sb strings.Builder
	sb.WriteString("Your open tasks:\n")
	for _, t := range open {
		fmt.Fprintf(&sb, "\n%s [%s] %s", t.Title, t.Status, t.Type)
		switch t.Status {
		case task.StatusAssigned:
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Start: "+t.Title, actionTaskStart+":"+t.ID)))
		case task.StatusInProgress:
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Complete: "+t.Title, actionTaskDone+":"+t.ID)))
		}
	}
	if len(rows) == 0 {
		b.reply(chatID, sb.String())
		return
	}
	b.replyMarkup(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) startTask(ctx context.Context, chatID int64, u user.User, taskID string) {
	if !u.HasPermission("tasks", "complete") {
		b.denied(chatID)
		return
	}
	t, err := b.app.Tasks.Start(ctx, taskID, u.ID)
	if err != nil {
		b.failed(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Task %q started. Press Complete when done.", t.Title))
	b.showMyTasks(ctx, chatID, u)
}

func (b *Bot) beginCompleteFlow(ctx context.Context, chatID int64, u user.User, taskID string) {
	if !u.HasPermission("tasks", "complete") {
		b.denied(chatID)
		return
	}
	t, err := b.app.Tasks.Get(ctx, taskID)
	if err != nil {
		b.failed(chatID, err)
		return
	}
	if len(t.Items) == 0 {
		b.finishTask(ctx, chatID, u, taskID, taskssvc.CompleteInput{})
		return
	}

	var sb strings.Builder
	sb.WriteString("Send actual quantities, one number per item in order, or \"ok\" to accept the plan:\n")
	for _, it := range t.Items {
		fmt.Fprintf(&sb, "\n%s planned %s", b.ingredientName(ctx, it.IngredientID), trimFloat(it.PlannedQuantity))
	}
	st := State{Flow: flowComplete, Step: "quantities", Data: map[string]string{"task_id": taskID}}
	if err := b.state.Put(ctx, chatID, st); err != nil {
		b.failed(chatID, err)
		return
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) finishTask(ctx context.Context, chatID int64, u user.User, taskID string, in taskssvc.CompleteInput) {
	t, err := b.app.Tasks.Complete(ctx, taskID, u.ID, in)
	if err != nil {
		b.failed(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Task %q completed.", t.Title))
}

// --- warehouse: stock ---

func (b *Bot) showLevels(ctx context.Context, chatID int64, u user.User) {
	loc := domaininv.Location{Type: domaininv.LocationWarehouse, ID: defaultWarehouseID}
	levels, err := b.app.Inventory.Levels(ctx, loc)
	if err != nil {
		b.failed(chatID, err)
		return
	}
	if len(levels) == 0 {
		b.reply(chatID, "Warehouse is empty.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Warehouse stock:\n")
	for _, lv := range levels {
		fmt.Fprintf(&sb, "\n%s: %s", b.ingredientName(ctx, lv.IngredientID), trimFloat(lv.Quantity))
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) showLowStock(ctx context.Context, chatID int64, u user.User) {
	low, err := b.app.Inventory.LowStockReport(ctx, defaultWarehouseID)
	if err != nil {
		b.failed(chatID, err)
		return
	}
	if len(low) == 0 {
		b.reply(chatID, "Nothing below minimum stock.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Below minimum stock:\n")
	for _, ls := range low {
		fmt.Fprintf(&sb, "\n%s: %s (min %s)", ls.Ingredient.Name, trimFloat(ls.Quantity), trimFloat(ls.Ingredient.MinStockLevel))
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) beginMovementFlow(ctx context.Context, chatID int64, u user.User, flow string) {
	if !u.HasPermission("inventory", "edit") {
		b.denied(chatID)
		return
	}
	st := State{Flow: flow, Step: "ingredient", Data: map[string]string{}}
	if err := b.state.Put(ctx, chatID, st); err != nil {
		b.failed(chatID, err)
		return
	}
	b.reply(chatID, "Send the ingredient code (e.g. COFFEE-ARABICA). /cancel to abort.")
}

// continueFlow advances a multi-step conversation with the user's text.
func (b *Bot) continueFlow(ctx context.Context, msg *tgbotapi.Message, u user.User, st State) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch st.Flow {
	case flowReceive, flowIssue:
		switch st.Step {
		case "ingredient":
			ing, err := b.ingredientByCode(ctx, text)
			if err != nil {
				b.reply(chatID, "Unknown ingredient code, try again or /cancel.")
				return
			}
			st.Data["ingredient_id"] = ing.ID
			st.Data["ingredient_name"] = ing.Name
			st.Step = "quantity"
			if err := b.state.Put(ctx, chatID, st); err != nil {
				b.failed(chatID, err)
				return
			}
			b.reply(chatID, fmt.Sprintf("How much %s (%s)?", ing.Name, ing.Unit))
		case "quantity":
			qty, err := strconv.ParseFloat(text, 64)
			if err != nil || qty <= 0 {
				b.reply(chatID, "Send a positive number, or /cancel.")
				return
			}
			b.applyMovement(ctx, chatID, u, st, qty)
		}
	case flowComplete:
		b.applyCompletion(ctx, chatID, u, st, text)
	default:
		_ = b.state.Delete(ctx, chatID)
		b.sendMenu(chatID, u)
	}
}

func (b *Bot) applyMovement(ctx context.Context, chatID int64, u user.User, st State, qty float64) {
	loc := domaininv.Location{Type: domaininv.LocationWarehouse, ID: defaultWarehouseID}
	mv := invsvc.Movement{IngredientID: st.Data["ingredient_id"], Quantity: qty, Notes: "telegram"}

	var (
		level domaininv.Level
		err   error
		verb  string
	)
	if st.Flow == flowReceive {
		level, err = b.app.Inventory.Receive(ctx, loc, mv, u.ID)
		verb = "Received"
	} else {
		level, err = b.app.Inventory.Issue(ctx, loc, mv, u.ID)
		verb = "Issued"
	}
	_ = b.state.Delete(ctx, chatID)
	if err != nil {
		b.failed(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("%s %s of %s. Warehouse now holds %s.",
		verb, trimFloat(qty), st.Data["ingredient_name"], trimFloat(level.Quantity)))
}

func (b *Bot) applyCompletion(ctx context.Context, chatID int64, u user.User, st State, text string) {
	taskID := st.Data["task_id"]
	in := taskssvc.CompleteInput{}

	if !strings.EqualFold(text, "ok") {
		t, err := b.app.Tasks.Get(ctx, taskID)
		if err != nil {
			_ = b.state.Delete(ctx, chatID)
			b.failed(chatID, err)
			return
		}
		fields := strings.Fields(text)
		if len(fields) != len(t.Items) {
			b.reply(chatID, fmt.Sprintf("Expected %d numbers (or \"ok\"), got %d.", len(t.Items), len(fields)))
			return
		}
		in.ActualQuantities = make(map[string]float64, len(fields))
		for i, f := range fields {
			qty, err := strconv.ParseFloat(f, 64)
			if err != nil || qty < 0 {
				b.reply(chatID, fmt.Sprintf("%q is not a valid quantity.", f))
				return
			}
			in.ActualQuantities[t.Items[i].IngredientID] = qty
		}
	}

	_ = b.state.Delete(ctx, chatID)
	b.finishTask(ctx, chatID, u, taskID, in)
}

// --- manager: machines and sales ---

func (b *Bot) showMachines(ctx context.Context, chatID int64, u user.User) {
	machines, err := b.app.Machines.List(ctx, storage.MachineFilter{})
	if err != nil {
		b.failed(chatID, err)
		return
	}
	if len(machines) == 0 {
		b.reply(chatID, "No machines registered.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Machines:\n")
	for _, m := range machines {
		fmt.Fprintf(&sb, "\n%s %s [%s]", m.Code, m.Name, m.Status)
		if m.LocationAddress != "" {
			fmt.Fprintf(&sb, " @ %s", m.LocationAddress)
		}
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) showSalesSummary(ctx context.Context, chatID int64, u user.User) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)
	summary, err := b.app.Finance.Summary(ctx, from, to)
	if err != nil {
		b.failed(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf(
		"Last 30 days:\nIncome: %s\nExpenses: %s\nNet: %s",
		trimFloat(summary.TotalIncome), trimFloat(summary.TotalExpense), trimFloat(summary.Net)))
}

// --- investor: portfolio ---

func (b *Bot) showPortfolio(ctx context.Context, chatID int64, u user.User) {
	stakes, err := b.app.Investments.List(ctx, storage.InvestmentFilter{InvestorID: u.ID})
	if err != nil {
		b.failed(chatID, err)
		return
	}
	if len(stakes) == 0 {
		b.reply(chatID, "You have no investments on record.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Your investments:\n")
	for _, inv := range stakes {
		m, err := b.app.Machines.Get(ctx, inv.MachineID)
		name := inv.MachineID
		if err == nil {
			name = m.Code + " " + m.Name
		}
		fmt.Fprintf(&sb, "\n%s: %s invested, %s%% share [%s]",
			name, trimFloat(inv.Amount), trimFloat(inv.SharePercent), inv.Status)
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) showPayouts(ctx context.Context, chatID int64, u user.User) {
	stakes, err := b.app.Investments.List(ctx, storage.InvestmentFilter{InvestorID: u.ID})
	if err != nil {
		b.failed(chatID, err)
		return
	}
	var sb strings.Builder
	total := 0
	sb.WriteString("Your payouts:\n")
	for _, inv := range stakes {
		payouts, err := b.app.Investments.ListPayouts(ctx, storage.PayoutFilter{InvestmentID: inv.ID})
		if err != nil {
			b.failed(chatID, err)
			return
		}
		for _, p := range payouts {
			total++
			fmt.Fprintf(&sb, "\n%s to %s: %s [%s]",
				p.PeriodStart.Format("2006-01-02"), p.PeriodEnd.Format("2006-01-02"),
				trimFloat(p.Amount), p.Status)
		}
	}
	if total == 0 {
		b.reply(chatID, "No payouts yet.")
		return
	}
	b.reply(chatID, sb.String())
}

// --- admin: users ---

func (b *Bot) showUsers(ctx context.Context, chatID int64, u user.User) {
	users, err := b.app.Users.List(ctx)
	if err != nil {
		b.failed(chatID, err)
		return
	}
	var sb strings.Builder
	sb.WriteString("Users:\n")
	for _, usr := range users {
		state := "active"
		if !usr.Active {
			state = "inactive"
		}
		fmt.Fprintf(&sb, "\n%s (%s) [%s]", usr.DisplayName(), strings.Join(usr.RoleNames(), ", "), state)
	}
	b.reply(chatID, sb.String())
}

// --- helpers ---

func (b *Bot) ingredientByCode(ctx context.Context, code string) (domaininv.Ingredient, error) {
	ingredients, err := b.app.Inventory.ListIngredients(ctx)
	if err != nil {
		return domaininv.Ingredient{}, err
	}
	for _, ing := range ingredients {
		if strings.EqualFold(ing.Code, code) {
			return ing, nil
		}
	}
	return domaininv.Ingredient{}, fmt.Errorf("ingredient %q not found", code)
}

func (b *Bot) ingredientName(ctx context.Context, id string) string {
	ing, err := b.app.Inventory.GetIngredient(ctx, id)
	if err != nil {
		return id
	}
	return ing.Name
}

func (b *Bot) denied(chatID int64) {
	b.reply(chatID, "You do not have permission for that.")
}

func (b *Bot) failed(chatID int64, err error) {
	b.log.WithField("error", err.Error()).Warn("bot action failed")
	b.reply(chatID, "Failed: "+err.Error())
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
