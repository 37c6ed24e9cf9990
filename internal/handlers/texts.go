package handlers

const (
	txtHelp = `Commands:
/d yymmdd | yymm  order details (phone, delivery, remark)
/c yymmdd | yymm  item totals
/tdy              today's item totals
/time H [M]       reply to a message to be reminded in H hours M minutes`

	txtRateLimited   = "⏳ Too many commands, try again in a minute"
	txtInvalidDate   = "❌ Invalid format. Use /%s yymmdd or /%s yymm"
	txtNoOrders      = "❌ No orders found for %s"
	txtNoOrdersToday = "❌ No orders for today (%s)"
	txtReportSent    = "✅ Results sent to the report channel"
	txtTodaySent     = "✅ Today's orders sent"
	txtReportFailed  = "❌ Report channel not available"
	txtNeedReply     = "❌ Please reply to a message first"
	txtTimeUsage     = "❌ Usage: /time <hours> [minutes]"
	txtReminderSet   = "✅ Reminder set for %s"
)
