package flow

import "github.com/tankist/marketbot/internal/session"

// Conversation steps beyond session.StepIdle. Each step names the input it
// waits for.
const (
	StepChoosingTemplate  session.Step = "choosing_template"
	StepEnteringDetails   session.Step = "entering_details"
	StepUploadingFiles    session.Step = "uploading_files"
	StepChoosingPayment   session.Step = "choosing_payment"
	StepWaitingPaymentRef session.Step = "waiting_payment_ref"
)

// Reply keyboard button labels.
const (
	BtnWebsite      = "🌐 Buy a Website"
	BtnBot          = "🤖 Buy a Telegram Bot"
	BtnMyOrders     = "📦 My Orders"
	BtnContactAdmin = "💬 Contact Admin"
	BtnCancel       = "Cancel"
	BtnPaid         = "I paid"
	BtnSendTxHash   = "Send TX hash"
	BtnContact      = "Contact Admin"
)

// Payment method labels offered at the choosing_payment step. Family
// detection is by substring, so free-typed variants still match.
const (
	PayUSDT   = "USDT (TRC20) — pay on Tron network"
	PayManual = "Manual payment (bank/card)"
)

// Literal accepted at the uploading_files step when nothing is attached.
const noFilesToken = "no files"

// MainMenu is the idle-state reply keyboard.
func MainMenu() [][]string {
	return [][]string{
		{BtnWebsite},
		{BtnBot},
		{BtnMyOrders},
		{BtnContactAdmin},
	}
}

// CancelMenu offers only the cancel button.
func CancelMenu() [][]string {
	return [][]string{{BtnCancel}}
}

// PaymentMenu lists the payment methods.
func PaymentMenu() [][]string {
	return [][]string{
		{PayUSDT},
		{PayManual},
		{BtnCancel},
	}
}

func websiteTemplateMenu() [][]string {
	return [][]string{
		{"Template A"},
		{"Template B"},
		{"Custom"},
		{BtnCancel},
	}
}

func botTemplateMenu() [][]string {
	return [][]string{
		{"Bot Template 1"},
		{"Bot Template 2"},
		{"Custom"},
		{BtnCancel},
	}
}

func usdtRefMenu() [][]string {
	return [][]string{
		{BtnPaid, BtnSendTxHash},
		{BtnCancel},
	}
}

func manualRefMenu() [][]string {
	return [][]string{
		{BtnContact, BtnPaid},
		{BtnCancel},
	}
}
