package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ryfenlabs/presale-cli/internal/config"
	"github.com/ryfenlabs/presale-cli/internal/presale"
)

// WidgetDeps wires the live purchase widget to the domain layer. Orchestrator
// may be nil: the widget then runs read-only (quotes and countdown, no buys).
type WidgetDeps struct {
	Cache        *presale.Cache
	Driver       *presale.RefreshDriver
	Engine       *presale.Engine
	Orchestrator *presale.Orchestrator
	Wallet       common.Address
	HasWallet    bool
	Referral     common.Address
	Assets       []presale.Asset // selectable payment assets, first is default
}

const (
	fieldPay   = 0
	fieldToken = 1
)

// widgetModel is the Bubble Tea model for the live purchase widget.
type widgetModel struct {
	deps WidgetDeps

	phase      int
	phaseEnd   uint64
	tokenPrice float64 // USD per sale token
	ethPrice   float64 // USD per ETH
	sold       float64 // tokens sold this phase
	countdown  presale.Countdown
	warnings   []string

	assetIdx   int
	payInput   string
	tokenInput string
	active     int // fieldPay or fieldToken
	lastEdited int
	quoteNote  string

	balance    presale.Balance
	buyStatus  presale.Status
	refreshing bool
	buying     bool
	frame      int
	flash      string
	quitting   bool
}

type wTickMsg struct{}

type wSnapshotMsg struct {
	phase      int
	phaseEnd   uint64
	tokenPrice float64
	ethPrice   float64
	sold       float64
	balance    presale.Balance
	warnings   []string
}

type wQuoteMsg struct {
	tokens float64
	warn   error
	apply  func() bool
}

type wBuyDoneMsg struct{ err error }

// wPurchaseConfirmedMsg is delivered through the program when the
// orchestrator confirms a purchase.
type wPurchaseConfirmedMsg struct{ hash string }

var widgetSpinFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func widgetTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return wTickMsg{}
	})
}

// RunWidget starts the full-screen purchase widget and blocks until the
// user quits.
func RunWidget(deps WidgetDeps) error {
	if len(deps.Assets) == 0 {
		deps.Assets = []presale.Asset{presale.AssetETH}
	}
	m := widgetModel{deps: deps, active: fieldPay, lastEdited: fieldPay}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if deps.Orchestrator != nil {
		deps.Orchestrator.OnConfirmed(func(_ presale.Asset, hash string) {
			p.Send(wPurchaseConfirmedMsg{hash: hash})
		})
	}
	_, err := p.Run()
	if err != nil {
		return fmt.Errorf("widget: %w", err)
	}
	return nil
}

func (m widgetModel) asset() presale.Asset { return m.deps.Assets[m.assetIdx] }

func (m widgetModel) Init() tea.Cmd {
	return tea.Batch(widgetTick(), m.mountCmd())
}

// mountCmd runs the ordered first fetch and reports the resulting snapshot.
func (m widgetModel) mountCmd() tea.Cmd {
	deps, asset := m.deps, m.asset()
	return func() tea.Msg {
		ctx := context.Background()
		errs := deps.Driver.Mount(ctx)
		return snapshot(ctx, deps, asset, errs, false)
	}
}

// refreshCmd re-runs the fetch sequence, forcing fresh values. The balance
// is forced too: a manual refresh refetches everything.
func (m widgetModel) refreshCmd() tea.Cmd {
	deps, asset := m.deps, m.asset()
	return func() tea.Msg {
		ctx := context.Background()
		errs := deps.Driver.Refresh(ctx)
		return snapshot(ctx, deps, asset, errs, true)
	}
}

// snapshot reads the post-fetch cache state. Non-balance reads never force,
// so they cost nothing beyond the fetch the driver already did.
func snapshot(ctx context.Context, deps WidgetDeps, asset presale.Asset, errs []error, forceBalance bool) wSnapshotMsg {
	var snap wSnapshotMsg
	for _, err := range errs {
		snap.warnings = append(snap.warnings, trimErr(err.Error()))
	}
	// The cache hands back the last good value alongside any warning, so
	// the read errors are already covered by errs above.
	snap.phase, _ = deps.Cache.PhaseID(ctx, false)
	snap.phaseEnd, _ = deps.Cache.PhaseEnd(ctx, false)
	snap.tokenPrice, _ = deps.Cache.TokenPriceUSD(ctx, false)
	snap.ethPrice, _ = deps.Cache.ETHPriceUSD(ctx, false)
	snap.sold, _ = deps.Cache.TokensSold(ctx, false)
	if deps.HasWallet {
		snap.balance = deps.Cache.Balance(ctx, asset, deps.Wallet, forceBalance)
	}
	return snap
}

// balanceCmd fetches the balance for the current asset only. Used after an
// asset switch so the whole snapshot is not refetched.
func (m widgetModel) balanceCmd(force bool) tea.Cmd {
	if !m.deps.HasWallet {
		return nil
	}
	deps, asset := m.deps, m.asset()
	old := m
	return func() tea.Msg {
		bal := deps.Cache.Balance(context.Background(), asset, deps.Wallet, force)
		return wSnapshotMsg{
			phase: old.phase, phaseEnd: old.phaseEnd,
			tokenPrice: old.tokenPrice, ethPrice: old.ethPrice, sold: old.sold,
			balance: bal,
		}
	}
}

// nativeQuoteCmd asks the contract how many tokens payETH buys. The session
// sequence inside apply drops the result if a newer quote started meanwhile.
func (m widgetModel) nativeQuoteCmd(payETH float64) tea.Cmd {
	engine, ethPrice, tokenPrice := m.deps.Engine, m.ethPrice, m.tokenPrice
	return func() tea.Msg {
		tokens, warn, apply := engine.NativeTokensSeq(context.Background(), payETH, ethPrice, tokenPrice)
		return wQuoteMsg{tokens: tokens, warn: warn, apply: apply}
	}
}

func (m widgetModel) buyCmd() tea.Cmd {
	deps, asset, balance := m.deps, m.asset(), m.balance
	pay, _ := parseAmount(m.payInput)
	return func() tea.Msg {
		err := deps.Orchestrator.Buy(context.Background(), asset, pay, balance, deps.Referral)
		return wBuyDoneMsg{err: err}
	}
}

// postConfirmCmd refreshes what a confirmed purchase changed: sold totals,
// the user's purchased total, and the paying asset's balance (forced).
func (m widgetModel) postConfirmCmd() tea.Cmd {
	deps, asset := m.deps, m.asset()
	return func() tea.Msg {
		ctx := context.Background()
		errs := deps.Driver.AfterPurchase(ctx)
		return snapshot(ctx, deps, asset, errs, true)
	}
}

// trackPhaseCmd checks for a phase rollover; TrackPhase force-refreshes the
// sold totals on change, so a change yields a fresh snapshot.
func (m widgetModel) trackPhaseCmd() tea.Cmd {
	deps, asset := m.deps, m.asset()
	return func() tea.Msg {
		ctx := context.Background()
		_, changed, err := deps.Driver.TrackPhase(ctx)
		if !changed {
			return nil
		}
		var errs []error
		if err != nil {
			errs = append(errs, err)
		}
		return snapshot(ctx, deps, asset, errs, false)
	}
}

func (m widgetModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case wTickMsg:
		m.frame = (m.frame + 1) % len(widgetSpinFrames)
		m.countdown = presale.SplitCountdown(m.phaseEnd, time.Now())
		if m.deps.Orchestrator != nil {
			m.buyStatus = m.deps.Orchestrator.Status()
		}
		// Watch for a phase rollover once per spinner cycle.
		if m.frame == 0 {
			return m, tea.Batch(widgetTick(), m.trackPhaseCmd())
		}
		return m, widgetTick()

	case wSnapshotMsg:
		m.refreshing = false
		m.phase = msg.phase
		m.phaseEnd = msg.phaseEnd
		m.tokenPrice = msg.tokenPrice
		m.ethPrice = msg.ethPrice
		m.sold = msg.sold
		m.balance = msg.balance
		m.warnings = msg.warnings
		m.countdown = presale.SplitCountdown(m.phaseEnd, time.Now())
		// Prices may have moved; requote whatever the user last typed.
		return m.requote()

	case wQuoteMsg:
		if msg.apply != nil && !msg.apply() {
			return m, nil // a newer quote superseded this one
		}
		m.tokenInput = presale.FormatTokens(msg.tokens)
		if msg.warn != nil {
			m.quoteNote = trimErr(msg.warn.Error())
		}
		return m, nil

	case wBuyDoneMsg:
		m.buying = false
		if m.deps.Orchestrator != nil {
			m.buyStatus = m.deps.Orchestrator.Status()
		}
		// Success is handled by wPurchaseConfirmedMsg from the
		// orchestrator's confirm hook.
		if msg.err != nil && m.buyStatus.State == presale.StateIdle {
			// Rejected before any state change (validation, balance guard).
			m.flash = trimErr(msg.err.Error())
		}
		return m, nil

	case wPurchaseConfirmedMsg:
		m.payInput = ""
		m.tokenInput = ""
		m.quoteNote = ""
		m.active = fieldPay
		m.lastEdited = fieldPay
		return m, m.postConfirmCmd()
	}

	return m, nil
}

func (m widgetModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	key := msg.String()

	switch key {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "tab":
		if m.active == fieldPay {
			m.active = fieldToken
		} else {
			m.active = fieldPay
		}
		return m, nil

	case "left", "right":
		if key == "left" {
			m.assetIdx = (m.assetIdx + len(m.deps.Assets) - 1) % len(m.deps.Assets)
		} else {
			m.assetIdx = (m.assetIdx + 1) % len(m.deps.Assets)
		}
		m.balance = presale.Balance{}
		mm, cmd := m.requote()
		return mm, tea.Batch(cmd, mm.balanceCmd(false))

	case "g":
		m.refreshing = true
		return m, m.refreshCmd()

	case "m":
		if m.balance.Known {
			amt := m.balance.Amount
			if m.asset().Stable() {
				m.payInput = presale.FormatUSD(amt)
			} else {
				amt -= config.GasReserveETH
				if amt < 0 {
					amt = 0
				}
				m.payInput = presale.FormatNative(amt)
			}
			m.active = fieldPay
			m.lastEdited = fieldPay
			return m.requote()
		}
		m.flash = "balance unknown"
		return m, nil

	case "enter":
		return m.startBuy()

	case "r":
		if m.deps.Orchestrator != nil && m.buyStatus.CanRetry {
			if err := m.deps.Orchestrator.Retry(); err != nil {
				m.flash = trimErr(err.Error())
				return m, nil
			}
			return m.startBuy()
		}
		return m, nil

	case "o":
		if m.buyStatus.TxHash != "" {
			openBrowser(config.ExplorerTxURL + m.buyStatus.TxHash)
			m.flash = "Opening in browser…"
		}
		return m, nil

	case "c":
		if hash := m.buyStatus.TxHash; hash != "" {
			if err := copyToClipboard(hash); err == nil {
				m.flash = "Copied: " + TruncateAddr(hash)
			} else {
				m.flash = "Copy failed"
			}
		}
		return m, nil

	case "backspace":
		m.editActive(func(s string) string {
			if s == "" {
				return s
			}
			return s[:len(s)-1]
		})
		return m.requote()
	}

	if len(key) == 1 && validAmountRune(m.activeInput(), rune(key[0])) {
		m.editActive(func(s string) string { return s + key })
		return m.requote()
	}
	return m, nil
}

func (m widgetModel) activeInput() string {
	if m.active == fieldPay {
		return m.payInput
	}
	return m.tokenInput
}

func (m *widgetModel) editActive(f func(string) string) {
	if m.active == fieldPay {
		m.payInput = f(m.payInput)
	} else {
		m.tokenInput = f(m.tokenInput)
	}
	m.lastEdited = m.active
}

// requote recomputes the counterpart field from whichever field the user
// edited last. Stable conversions are pure math; native token quotes go to
// the contract asynchronously.
func (m widgetModel) requote() (widgetModel, tea.Cmd) {
	m.quoteNote = ""
	if m.lastEdited == fieldPay {
		pay, ok := parseAmount(m.payInput)
		if !ok {
			m.tokenInput = ""
			return m, nil
		}
		if m.asset().Stable() {
			m.tokenInput = presale.FormatTokens(presale.StableToTokens(pay, m.tokenPrice))
			return m, nil
		}
		return m, m.nativeQuoteCmd(pay)
	}

	tokens, ok := parseAmount(m.tokenInput)
	if !ok {
		m.payInput = ""
		return m, nil
	}
	if m.asset().Stable() {
		m.payInput = presale.FormatUSD(presale.TokensToStable(tokens, m.tokenPrice))
	} else {
		m.payInput = presale.FormatNative(presale.TokensToNative(tokens, m.tokenPrice, m.ethPrice))
	}
	return m, nil
}

func (m widgetModel) startBuy() (tea.Model, tea.Cmd) {
	if m.deps.Orchestrator == nil || !m.deps.HasWallet {
		m.flash = "no wallet connected"
		return m, nil
	}
	if m.buying || !m.buyStatus.State.Terminal() {
		m.flash = "purchase already in progress"
		return m, nil
	}
	if _, ok := parseAmount(m.payInput); !ok {
		m.flash = "enter an amount first"
		return m, nil
	}
	m.buying = true
	return m, m.buyCmd()
}

// ── View ─────────────────────────────────────────────────────────────────

func (m widgetModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	spin := widgetSpinFrames[m.frame]

	title := fmt.Sprintf("🪙  %s Presale  ·  Phase %d", config.SaleTokenSymbol, m.phase)
	if m.refreshing {
		title += "  ·  " + spin + " refreshing"
	}
	sb.WriteString(StyleTitle.Render(title) + "\n")

	// ── Countdown ────────────────────────────────────────────────────────
	switch {
	case !m.countdown.Known:
		sb.WriteString(StyleMeta.Render("  phase end: …") + "\n")
	case m.countdown.Expired():
		sb.WriteString(StyleWarning.Render("  phase ended — next phase pending") + "\n")
	default:
		sb.WriteString(StyleMeta.Render("  ends in ") + StyleValue.Render(formatCountdown(m.countdown)) + "\n")
	}

	// ── Prices ───────────────────────────────────────────────────────────
	sb.WriteString(fmt.Sprintf("  %s %s   %s %s\n",
		StyleMeta.Render("1 "+config.SaleTokenSymbol+" ="),
		StyleValue.Render("$"+presale.FormatPrice(m.tokenPrice)),
		StyleMeta.Render("ETH ="),
		StyleValue.Render("$"+presale.FormatUSD(m.ethPrice)),
	))

	// ── Phase progress ───────────────────────────────────────────────────
	if target, ok := presale.PhaseTarget(m.phase); ok {
		raised := m.sold * m.tokenPrice
		pct := presale.Progress(raised, target)
		sb.WriteString(fmt.Sprintf("  %s %s\n",
			renderBar(pct, 32),
			StyleMeta.Render(fmt.Sprintf("%.1f%% of $%.0f", pct, target)),
		))
	}
	sb.WriteString("\n")

	// ── Asset + balance ──────────────────────────────────────────────────
	var assetParts []string
	for i, a := range m.deps.Assets {
		label := string(a)
		if i == m.assetIdx {
			assetParts = append(assetParts, StyleSelected.Render(" "+label+" "))
		} else {
			assetParts = append(assetParts, StyleMeta.Render(" "+label+" "))
		}
	}
	sb.WriteString("  " + strings.Join(assetParts, " ") + "\n")

	if m.deps.HasWallet {
		switch {
		case m.balance.Known:
			sb.WriteString(StyleMeta.Render("  balance: ") +
				StyleValue.Render(fmt.Sprintf("%.4f %s", m.balance.Amount, m.asset())) + "\n")
		default:
			sb.WriteString(StyleMeta.Render("  balance: ") + StyleError.Render("Error") + "\n")
		}
	} else {
		sb.WriteString(StyleMeta.Render("  no wallet — quotes only") + "\n")
	}
	sb.WriteString("\n")

	// ── Amount fields ────────────────────────────────────────────────────
	sb.WriteString(renderField("Pay ("+string(m.asset())+")", m.payInput, m.active == fieldPay))
	sb.WriteString(renderField("Receive ("+config.SaleTokenSymbol+")", m.tokenInput, m.active == fieldToken))
	if m.quoteNote != "" {
		sb.WriteString(StyleWarning.Render("  ⚠ "+m.quoteNote) + "\n")
	}
	sb.WriteString("\n")

	// ── Purchase status ──────────────────────────────────────────────────
	sb.WriteString(renderBuyStatus(m.buyStatus, spin))

	// ── Warnings ─────────────────────────────────────────────────────────
	for _, w := range m.warnings {
		sb.WriteString(StyleWarning.Render("  ⚠ "+w) + "\n")
	}

	// ── Controls ─────────────────────────────────────────────────────────
	sb.WriteString("\n")
	if m.flash != "" {
		sb.WriteString(StyleValue.Render("  › " + m.flash))
	} else {
		sb.WriteString(widgetControls(m.buyStatus))
	}
	sb.WriteString("\n")

	return sb.String()
}

func renderField(label, value string, active bool) string {
	cursor := ""
	if active {
		cursor = lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true).Render("▏")
	}
	box := StyleValue.Render(value) + cursor
	if value == "" && !active {
		box = StyleMeta.Render("0.00")
	}
	return fmt.Sprintf("  %s [ %s ]\n", padR(StyleMeta.Render(label+":"), 26), box)
}

func renderBuyStatus(st presale.Status, spin string) string {
	switch st.State {
	case presale.StateIdle, "":
		return ""
	case presale.StatePreparing:
		return StyleMeta.Render("  "+spin+" preparing transaction…") + "\n"
	case presale.StateAwaitingApproval:
		return StyleWarning.Render("  "+spin+" approving "+string(st.Asset)+" spend…") + "\n"
	case presale.StateAwaitingSignature:
		return StyleWarning.Render("  "+spin+" signing…") + "\n"
	case presale.StateSubmitted:
		return StyleMeta.Render("  "+spin+" submitted ") + StyleAddress.Render(TruncateAddr(st.TxHash)) +
			StyleMeta.Render(" — waiting for confirmation…") + "\n"
	case presale.StateConfirmed:
		return StyleSuccess.Render("  ✓ confirmed ") + StyleAddress.Render(TruncateAddr(st.TxHash)) + "\n"
	case presale.StateTimedOut:
		return StyleError.Render("  ✗ timed out — the transaction may still confirm") + "\n"
	case presale.StateFailed:
		msg := "purchase failed"
		if st.Err != nil {
			msg = trimErr(st.Err.Error())
		}
		line := StyleError.Render("  ✗ " + msg)
		if st.TxHash != "" {
			line += " " + StyleAddress.Render(TruncateAddr(st.TxHash))
		}
		return line + "\n"
	}
	return ""
}

func widgetControls(st presale.Status) string {
	sep := StyleMeta.Render("   ")
	var sb strings.Builder
	sb.WriteString(StyleMeta.Render("[ ←→ ]") + StyleMeta.Render(" asset"))
	sb.WriteString(sep)
	sb.WriteString(StyleMeta.Render("[ Tab ]") + StyleMeta.Render(" field"))
	sb.WriteString(sep)
	sb.WriteString(StyleAddress.Render("[ m ]") + StyleMeta.Render(" max"))
	sb.WriteString(sep)
	sb.WriteString(StyleAddress.Render("[ Enter ]") + StyleMeta.Render(" buy"))
	sb.WriteString(sep)
	if st.CanRetry {
		sb.WriteString(StyleWarning.Render("[ r ]") + StyleMeta.Render(" retry"))
		sb.WriteString(sep)
	}
	if st.TxHash != "" {
		sb.WriteString(StyleMeta.Render("[ o ]") + StyleMeta.Render(" explorer"))
		sb.WriteString(sep)
		sb.WriteString(StyleMeta.Render("[ c ]") + StyleMeta.Render(" copy hash"))
		sb.WriteString(sep)
	}
	sb.WriteString(StyleMeta.Render("[ g ]") + StyleMeta.Render(" refresh"))
	sb.WriteString(sep)
	sb.WriteString(StyleMeta.Render("[ q ]") + StyleMeta.Render(" quit"))
	return sb.String()
}
