package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Ananth-NQI/orderbot-backend/internal/config"
	"github.com/Ananth-NQI/orderbot-backend/internal/models"
)

// Message bodies sent over WhatsApp. Only the wording lives here; the
// conversation logic never inspects these strings.

const mainMenuOptions = `1️⃣ View menu
2️⃣ Place an order
3️⃣ Contact & hours
4️⃣ Help

Reply with a number.`

func welcomeMessage(r config.Restaurant) string {
	name := r.Name
	if name == "" {
		name = "our restaurant"
	}
	return fmt.Sprintf("👋 Welcome to *%s*!\n\nWhat would you like to do?\n\n%s", name, mainMenuOptions)
}

func mainMenuFallbackMessage() string {
	return "🤔 Sorry, I didn't get that.\n\n" + mainMenuOptions
}

func helpMessage() string {
	return `ℹ️ *How to order*

• Send *1* to browse the menu
• Send *2* to start an order; pick several products at once with commas (e.g. 1,3)
• Send *cancel* at any time to start over
• Send *hola* to come back to this menu

` + mainMenuOptions
}

func contactMessage(r config.Restaurant) string {
	var b strings.Builder
	b.WriteString("📍 *Contact*\n\n")
	if r.Name != "" {
		fmt.Fprintf(&b, "*%s*\n", r.Name)
	}
	if r.PickupAddress != "" {
		fmt.Fprintf(&b, "Address: %s\n", r.PickupAddress)
	}
	if r.Hours != "" {
		fmt.Fprintf(&b, "Hours: %s\n", r.Hours)
	}
	if r.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", r.Phone)
	}
	for _, line := range r.ContactLines {
		b.WriteString(line + "\n")
	}
	b.WriteString("\nSend *hola* to return to the menu.")
	return b.String()
}

func cancelMessage() string {
	return "❌ Conversation canceled. Send *hola* whenever you want to start again."
}

func apologyMessage() string {
	return "😔 Sorry, something went wrong on our side. Please send *hola* to start again."
}

func menuUnavailableMessage() string {
	return "😔 Our menu is not available right now. Please try again later.\n\n" + mainMenuOptions
}

func categoriesMessage(cats []CategoryRef) string {
	var b strings.Builder
	b.WriteString("📋 *Our menu*\n\n")
	for i, c := range cats {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Name)
	}
	b.WriteString("\nReply with a category number, or *all* to see every product.")
	return b.String()
}

func invalidCategoryMessage(n int) string {
	return fmt.Sprintf("⚠️ Please reply with a number between 1 and %d, or *all*.", n)
}

const browsingFooter = "\n\nReply *order* to start an order, *back* for the categories or *hola* for the main menu."

func productsMessage(title string, products []ProductRef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🍽️ *%s*\n\n", title)
	if len(products) == 0 {
		b.WriteString("No products available in this category right now.")
	}
	for _, p := range products {
		fmt.Fprintf(&b, "• %s  %s\n", p.Name, money(p.Price))
	}
	return strings.TrimRight(b.String(), "\n") + browsingFooter
}

func allProductsMessage(cats []CategoryRef, products []ProductRef) string {
	byCategory := make(map[uint][]ProductRef)
	for _, p := range products {
		byCategory[p.CategoryID] = append(byCategory[p.CategoryID], p)
	}

	var b strings.Builder
	b.WriteString("🍽️ *Full menu*\n")
	for _, c := range cats {
		items := byCategory[c.ID]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n*%s*\n", c.Name)
		for _, p := range items {
			fmt.Fprintf(&b, "• %s  %s\n", p.Name, money(p.Price))
		}
	}
	return strings.TrimRight(b.String(), "\n") + browsingFooter
}

func browsingProductsFallbackMessage() string {
	return "🤔 Reply *order* to start an order, *back* for the categories or *hola* for the main menu."
}

func orderProductListMessage(products []ProductRef, cart []CartItem) string {
	var b strings.Builder
	if len(cart) > 0 {
		fmt.Fprintf(&b, "🛒 You have %d item(s) in your cart.\n\n", cartUnits(cart))
	}
	b.WriteString("🛍️ *What would you like to order?*\n\n")
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s  %s\n", i+1, p.Name, money(p.Price))
	}
	b.WriteString("\nReply with the product numbers separated by commas (e.g. 1,3).")
	return b.String()
}

func invalidSelectionMessage(token string, n int) string {
	if token == "" {
		token = "(empty)"
	}
	return fmt.Sprintf("⚠️ \"%s\" is not a valid product number. Choose numbers between 1 and %d, separated by commas.", token, n)
}

func quantityPrompt(p ProductRef, pos, total int) string {
	if total > 1 {
		return fmt.Sprintf("🔢 (%d/%d) How many *%s* would you like?", pos, total, p.Name)
	}
	return fmt.Sprintf("🔢 How many *%s* would you like?", p.Name)
}

func invalidQuantityMessage(p ProductRef) string {
	return fmt.Sprintf("⚠️ Please send a whole number from 1 to %d for *%s*.", MaxQuantity, p.Name)
}

func cartLines(b *strings.Builder, cart []CartItem) {
	for _, it := range cart {
		fmt.Fprintf(b, "• %d x %s  %s\n", it.Quantity, it.Name, money(it.Subtotal()))
	}
}

func moreItemsPrompt(cart []CartItem) string {
	var b strings.Builder
	b.WriteString("🛒 *Your cart*\n\n")
	cartLines(&b, cart)
	fmt.Fprintf(&b, "\nSubtotal: %s\n\nWould you like to add more products? (yes/no)", money(cartSubtotal(cart)))
	return b.String()
}

func moreItemsFallbackMessage() string {
	return "🤔 Please reply *yes* to add more products or *no* to continue."
}

func namePrompt() string {
	return "👤 What name should we put the order under?"
}

func invalidNameMessage() string {
	return "⚠️ Please send a name with at least 2 characters."
}

func deliveryTypePrompt(r config.Restaurant) string {
	pickup := "Pick up at the restaurant"
	if r.PickupAddress != "" {
		pickup += " (" + r.PickupAddress + ")"
	}
	return fmt.Sprintf("🚚 How would you like to receive your order?\n\n1️⃣ %s\n2️⃣ Home delivery (+%s)", pickup, money(r.DeliveryFee))
}

func invalidDeliveryTypeMessage() string {
	return "⚠️ Please reply *1* for pickup or *2* for delivery."
}

func addressPrompt() string {
	return "🏠 Please send the delivery address (street, number, neighborhood)."
}

func invalidAddressMessage() string {
	return "⚠️ That address looks too short. Please include street, number and neighborhood."
}

func notesPrompt() string {
	return "📝 Any notes for the kitchen? (e.g. no onions). Reply *no* if none."
}

func deliveryDetails(d SessionData, r config.Restaurant) string {
	if d.DeliveryType == models.DeliveryTypeDelivery {
		return "🚚 Delivery to: " + d.Address
	}
	if r.PickupAddress != "" {
		return "🏪 Pickup at: " + r.PickupAddress
	}
	return "🏪 Pickup at the restaurant"
}

func orderSummaryMessage(d SessionData, r config.Restaurant) string {
	var b strings.Builder
	b.WriteString("🧾 *Order summary*\n\n")
	cartLines(&b, d.Cart)
	fmt.Fprintf(&b, "\nSubtotal: %s\n", money(cartSubtotal(d.Cart)))
	if d.DeliveryType == models.DeliveryTypeDelivery {
		fmt.Fprintf(&b, "Delivery: %s\n", money(d.DeliveryFee))
	}
	fmt.Fprintf(&b, "*Total: %s*\n\n", money(orderTotal(d)))
	fmt.Fprintf(&b, "👤 %s\n%s\n", d.CustomerName, deliveryDetails(d, r))
	if d.Notes != "" {
		fmt.Fprintf(&b, "📝 %s\n", d.Notes)
	}
	b.WriteString("\nConfirm the order? Reply *yes* to confirm or anything else to cancel.")
	return b.String()
}

func orderCanceledMessage() string {
	return "❌ Order canceled. Send *hola* whenever you want to start again."
}

func orderConfirmationMessage(o *models.Order, d SessionData, r config.Restaurant) string {
	return fmt.Sprintf("✅ *Order #%d confirmed!*\n\nTotal: %s\n%s\n\nWe'll let you know when it's ready. Thank you! 🙌",
		o.ID, money(o.Total), deliveryDetails(d, r))
}

func restaurantNotificationMessage(o *models.Order, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 *New order #%d*\n\n", o.ID)
	fmt.Fprintf(&b, "Customer: %s (%s)\n\n", o.CustomerName, o.Phone)
	for _, it := range o.Items {
		fmt.Fprintf(&b, "• %d x %s  %s\n", it.Quantity, it.ProductName, money(it.Subtotal))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", money(o.Subtotal))
	if o.DeliveryType == models.DeliveryTypeDelivery {
		fmt.Fprintf(&b, "Delivery fee: %s\n", money(o.DeliveryFee))
		fmt.Fprintf(&b, "Total: %s\n\n🚚 Delivery to: %s\n", money(o.Total), o.DeliveryAddress)
	} else {
		fmt.Fprintf(&b, "Total: %s\n\n🏪 Pickup\n", money(o.Total))
	}
	if o.Notes != "" {
		fmt.Fprintf(&b, "📝 %s\n", o.Notes)
	}
	fmt.Fprintf(&b, "🕒 %s", o.CreatedAt.In(loc).Format("02/01/2006 15:04"))
	return b.String()
}

// Administrator messages

func adminMenuMessage() string {
	return `🛠️ *Admin panel*

1️⃣ Pending orders
2️⃣ Today's summary
3️⃣ Change an order status

Reply with a number.`
}

func adminInvalidOptionMessage() string {
	return "⚠️ Invalid option. Send *admin* to open the panel again."
}

func pendingOrdersMessage(orders []*models.Order) string {
	if len(orders) == 0 {
		return "✅ No pending orders."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏳ *Pending orders (%d)*\n\n", len(orders))
	for _, o := range orders {
		fmt.Fprintf(&b, "#%d  %s  %s  %s  %s\n", o.ID, o.CustomerName, unitsLabel(o.ItemCount()), money(o.Total), o.DeliveryType)
	}
	return strings.TrimRight(b.String(), "\n")
}

func unitsLabel(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

func dailySummaryMessage(s *models.OrderSummary, day time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Summary for %s*\n\n", day.Format("02/01/2006"))
	fmt.Fprintf(&b, "Orders: %d\n", s.Total)

	statuses := make([]string, 0, len(s.ByStatus))
	for st := range s.ByStatus {
		statuses = append(statuses, st)
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		fmt.Fprintf(&b, "• %s: %d\n", st, s.ByStatus[st])
	}
	fmt.Fprintf(&b, "\nCompleted revenue: %s", money(s.CompletedRevenue))
	return b.String()
}

func adminOrderIDPrompt() string {
	return "🔎 Send the order number."
}

func invalidOrderIDMessage() string {
	return "⚠️ That is not a valid order number."
}

func orderNotFoundMessage(id uint) string {
	return fmt.Sprintf("🔍 Order #%d not found.", id)
}

func orderDetailMessage(o *models.Order, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 *Order #%d*  (%s)\n\n", o.ID, o.Status)
	fmt.Fprintf(&b, "Customer: %s (%s)\n", o.CustomerName, o.Phone)
	fmt.Fprintf(&b, "Placed: %s\n\n", o.CreatedAt.In(loc).Format("02/01/2006 15:04"))
	for _, it := range o.Items {
		fmt.Fprintf(&b, "• %d x %s  %s\n", it.Quantity, it.ProductName, money(it.Subtotal))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", money(o.Total))
	if o.DeliveryType == models.DeliveryTypeDelivery {
		fmt.Fprintf(&b, "🚚 %s\n", o.DeliveryAddress)
	} else {
		b.WriteString("🏪 Pickup\n")
	}
	if o.Notes != "" {
		fmt.Fprintf(&b, "📝 %s\n", o.Notes)
	}
	fmt.Fprintf(&b, "\nTo change its status send:\n*estado %d completado|cancelado|pendiente*", o.ID)
	return b.String()
}

func statusCommandUsageMessage() string {
	return "⚠️ Usage: *estado <order number> <completed|canceled|pending>*"
}

func statusChangeConfirmMessage(o *models.Order, newStatus string) string {
	return fmt.Sprintf("🔄 Order #%d (%s, %s)\nStatus: %s → *%s*\n\n1️⃣ Confirm\n2️⃣ Abort",
		o.ID, o.CustomerName, money(o.Total), o.Status, newStatus)
}

func statusChangedMessage(id uint, status string) string {
	return fmt.Sprintf("✅ Order #%d is now *%s*.", id, status)
}

func statusChangeAbortedMessage() string {
	return "↩️ Status change aborted."
}

func customerStatusMessage(o *models.Order, status string, r config.Restaurant) string {
	switch status {
	case models.OrderStatusCompleted:
		return fmt.Sprintf("🎉 Your order #%d is complete. Thank you for ordering with us!", o.ID)
	case models.OrderStatusCanceled:
		msg := fmt.Sprintf("😔 Your order #%d has been canceled.", o.ID)
		if r.Phone != "" {
			msg += " For questions call " + r.Phone + "."
		}
		return msg
	default:
		return fmt.Sprintf("ℹ️ Your order #%d is now %s.", o.ID, status)
	}
}
