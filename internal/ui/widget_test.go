package ui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryfenlabs/presale-cli/internal/presale"
)

func testWidget(assets ...presale.Asset) widgetModel {
	if len(assets) == 0 {
		assets = []presale.Asset{presale.AssetETH, presale.AssetUSDT}
	}
	return widgetModel{
		deps:       WidgetDeps{Assets: assets},
		tokenPrice: 0.0015,
		ethPrice:   2000,
		active:     fieldPay,
		lastEdited: fieldPay,
	}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func typeInto(t *testing.T, m widgetModel, s string) widgetModel {
	t.Helper()
	for _, r := range s {
		next, _ := m.Update(keyRune(r))
		var ok bool
		m, ok = next.(widgetModel)
		require.True(t, ok)
	}
	return m
}

func TestWidgetTypingQuotesStablePurchase(t *testing.T) {
	m := testWidget(presale.AssetUSDT)
	m = typeInto(t, m, "150")

	assert.Equal(t, "150", m.payInput)
	// 150 USD at $0.0015 per token.
	assert.Equal(t, "100000.00", m.tokenInput)
}

func TestWidgetTokenFieldDrivesStablePay(t *testing.T) {
	m := testWidget(presale.AssetUSDT)
	m.active = fieldToken
	m = typeInto(t, m, "100000")

	assert.Equal(t, fieldToken, m.lastEdited)
	assert.Equal(t, "150.00", m.payInput)
}

func TestWidgetRejectsSecondDot(t *testing.T) {
	m := testWidget(presale.AssetUSDT)
	m = typeInto(t, m, "1.5.")
	assert.Equal(t, "1.5", m.payInput)
}

func TestWidgetBackspace(t *testing.T) {
	m := testWidget(presale.AssetUSDT)
	m = typeInto(t, m, "42")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m = next.(widgetModel)
	assert.Equal(t, "4", m.payInput)
}

func TestWidgetTabSwitchesField(t *testing.T) {
	m := testWidget()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(widgetModel)
	assert.Equal(t, fieldToken, m.active)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(widgetModel)
	assert.Equal(t, fieldPay, m.active)
}

func TestWidgetAssetCycleClearsBalance(t *testing.T) {
	m := testWidget()
	m.balance = presale.Balance{Known: true, Amount: 5}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(widgetModel)
	assert.Equal(t, presale.AssetUSDT, m.asset())
	assert.False(t, m.balance.Known)

	// Left from the first asset wraps to the last.
	m.assetIdx = 0
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m = next.(widgetModel)
	assert.Equal(t, presale.AssetUSDT, m.asset())
}

func TestWidgetBuyWithoutWalletFlashes(t *testing.T) {
	m := testWidget(presale.AssetUSDT)
	m = typeInto(t, m, "10")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(widgetModel)
	assert.Nil(t, cmd)
	assert.Equal(t, "no wallet connected", m.flash)
}

func TestWidgetNativeQuoteResultApplied(t *testing.T) {
	m := testWidget()
	next, _ := m.Update(wQuoteMsg{tokens: 666666.67, apply: func() bool { return true }})
	m = next.(widgetModel)
	assert.Equal(t, "666666.67", m.tokenInput)
	assert.Empty(t, m.quoteNote)
}

func TestWidgetStaleNativeQuoteDiscarded(t *testing.T) {
	m := testWidget()
	m.tokenInput = "123.00"
	next, _ := m.Update(wQuoteMsg{tokens: 1.0, apply: func() bool { return false }})
	m = next.(widgetModel)
	assert.Equal(t, "123.00", m.tokenInput)
}

func TestWidgetQuoteWarnSurfaced(t *testing.T) {
	m := testWidget()
	next, _ := m.Update(wQuoteMsg{
		tokens: 10,
		warn:   presale.ErrFormulaFallback,
		apply:  func() bool { return true },
	})
	m = next.(widgetModel)
	assert.NotEmpty(t, m.quoteNote)
}

func TestWidgetConfirmedPurchaseClearsInputs(t *testing.T) {
	m := testWidget(presale.AssetUSDT)
	m = typeInto(t, m, "150")
	require.Equal(t, "150", m.payInput)
	require.NotEmpty(t, m.tokenInput)

	next, cmd := m.Update(wPurchaseConfirmedMsg{hash: "0xhash1"})
	m = next.(widgetModel)
	assert.Empty(t, m.payInput)
	assert.Empty(t, m.tokenInput)
	assert.Equal(t, fieldPay, m.active)
	assert.NotNil(t, cmd, "a confirmed purchase schedules the post-confirm refresh")
}

func TestWidgetMaxFillStableUsesUSDFormat(t *testing.T) {
	m := testWidget(presale.AssetUSDT)
	m.deps.HasWallet = true
	m.balance = presale.Balance{Known: true, Amount: 300}

	next, _ := m.Update(keyRune('m'))
	m = next.(widgetModel)
	assert.Equal(t, "300.00", m.payInput, "stable max-fill uses 2-decimal USD formatting")
	assert.Equal(t, "200000.00", m.tokenInput)
}

func TestWidgetMaxFillETHKeepsGasReserve(t *testing.T) {
	m := testWidget(presale.AssetETH)
	m.deps.HasWallet = true
	m.balance = presale.Balance{Known: true, Amount: 1.0}

	next, _ := m.Update(keyRune('m'))
	m = next.(widgetModel)
	assert.Equal(t, "0.999000", m.payInput, "native max-fill leaves the gas reserve")
}

func TestWidgetSnapshotRefreshesState(t *testing.T) {
	m := testWidget()
	next, _ := m.Update(wSnapshotMsg{
		phase:      2,
		phaseEnd:   4102444800, // far future
		tokenPrice: 0.002,
		ethPrice:   2500,
		sold:       1000,
	})
	m = next.(widgetModel)
	assert.Equal(t, 2, m.phase)
	assert.InDelta(t, 0.002, m.tokenPrice, 1e-12)
	assert.True(t, m.countdown.Known)
	assert.False(t, m.countdown.Expired())
}

func TestWidgetTickTracksPhaseRollover(t *testing.T) {
	ctx := context.Background()
	phase := 2
	f := presale.Fetchers{
		PhaseID:       func(context.Context) (int, error) { return phase, nil },
		PhaseEnd:      func(context.Context) (uint64, error) { return 0, nil },
		TokenPriceUSD: func(context.Context) (float64, error) { return 0.0015, nil },
		ETHPriceUSD:   func(context.Context) (float64, error) { return 2000, nil },
		TokensSold:    func(context.Context) (float64, error) { return 1000, nil },
	}
	cache := presale.NewCache(f)
	driver := presale.NewRefreshDriver(cache)
	require.Empty(t, driver.Mount(ctx))

	m := testWidget()
	m.deps.Cache = cache
	m.deps.Driver = driver
	m.frame = len(widgetSpinFrames) - 1 // next tick wraps to the watch frame

	// The phase rolls over between ticks.
	phase = 3
	_, err := cache.PhaseID(ctx, true)
	require.NoError(t, err)

	next, cmd := m.Update(wTickMsg{})
	m = next.(widgetModel)
	require.NotNil(t, cmd)

	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok, "the watch frame batches the phase check with the tick")
	var snap wSnapshotMsg
	found := false
	for _, c := range batch {
		if s, ok := c().(wSnapshotMsg); ok {
			snap = s
			found = true
		}
	}
	require.True(t, found, "a phase change yields a fresh snapshot")
	assert.Equal(t, 3, snap.phase)
}

func TestWidgetViewReadOnlyWithoutWallet(t *testing.T) {
	m := testWidget()
	view := m.View()
	assert.Contains(t, view, "no wallet")
	assert.Contains(t, view, "Pay (ETH)")
}

func TestWidgetViewShowsConfirmedStatus(t *testing.T) {
	m := testWidget()
	m.buyStatus = presale.Status{
		State:  presale.StateConfirmed,
		TxHash: "0xabcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789",
	}
	view := m.View()
	assert.Contains(t, view, "confirmed")
	assert.Contains(t, view, "0xabcd…6789")
}

func TestWidgetQuitClearsView(t *testing.T) {
	m := testWidget()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(widgetModel)
	assert.True(t, m.quitting)
	assert.NotNil(t, cmd)
	assert.Equal(t, "", m.View())
}
