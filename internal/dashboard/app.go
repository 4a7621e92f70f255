package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sgawallet/sga-wallet/common/utils"
	"github.com/sgawallet/sga-wallet/internal/dashboard/api"
	"github.com/sgawallet/sga-wallet/internal/dashboard/components"
	"github.com/sgawallet/sga-wallet/internal/dashboard/styles"
)

// Config는 대시보드 설정
type Config struct {
	BaseURL    string
	LogPath    string
	RefreshSec int
}

// Model은 Bubbletea 모델
type Model struct {
	config      Config
	client      *api.Client
	online      bool
	err         string
	connections []api.Connection
	assets      *api.Assets
	selected    int // 0은 전체, i는 connections[i-1]
	refreshing  bool
	spinner     spinner.Model
	width       int
	height      int
	logViewer   *components.LogViewer
	showHelp    bool
	quitting    bool
}

// Run은 대시보드 실행
func Run(config Config) error {
	m := initialModel(config)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func initialModel(config Config) Model {
	if config.RefreshSec <= 0 {
		config.RefreshSec = 5
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SelectedStyle

	return Model{
		config:    config,
		client:    api.NewClient(config.BaseURL),
		spinner:   sp,
		logViewer: components.NewLogViewer(config.LogPath, 10),
	}
}

// tickMsg는 주기적 업데이트 메시지
type tickMsg time.Time

// snapshotMsg는 연결/자산 조회 결과
type snapshotMsg struct {
	connections []api.Connection
	assets      *api.Assets
	err         error
}

// refreshedMsg는 서버 측 재집계 결과
type refreshedMsg struct {
	assets *api.Assets
	err    error
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.config.RefreshSec),
		m.fetch(),
	)
}

func tickCmd(seconds int) tea.Cmd {
	return tea.Tick(time.Duration(seconds)*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetch() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		conns, err := client.GetConnections()
		if err != nil {
			return snapshotMsg{err: err}
		}
		assets, err := client.GetAssets()
		if err != nil {
			return snapshotMsg{err: err}
		}
		return snapshotMsg{connections: conns, assets: assets}
	}
}

func (m Model) refresh() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		assets, err := client.RefreshAssets()
		return refreshedMsg{assets: assets, err: err}
	}
}

func (m Model) disconnect(c api.Connection) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if err := client.Disconnect(c.Family, c.Address); err != nil {
			return snapshotMsg{err: err}
		}
		return m.fetch()()
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "?":
			m.showHelp = !m.showHelp

		case "r":
			if !m.refreshing {
				m.refreshing = true
				return m, tea.Batch(m.refresh(), m.spinner.Tick)
			}

		case "d":
			if c, ok := m.selectedConnection(); ok {
				return m, m.disconnect(c)
			}

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.selected < len(m.connections) {
				m.selected++
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		cmds = append(cmds, tickCmd(m.config.RefreshSec), m.fetch())
		if err := m.logViewer.Refresh(); err != nil {
			m.err = err.Error()
		}

	case snapshotMsg:
		m.applySnapshot(msg)

	case refreshedMsg:
		m.refreshing = false
		if msg.err != nil {
			m.err = msg.err.Error()
		} else {
			m.assets = msg.assets
			m.err = ""
		}

	case spinner.TickMsg:
		if m.refreshing {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) applySnapshot(msg snapshotMsg) {
	if msg.err != nil {
		m.online = m.client.IsAlive()
		m.err = msg.err.Error()
		return
	}
	m.online = true
	m.err = ""
	m.connections = msg.connections
	m.assets = msg.assets
	if m.selected > len(m.connections) {
		m.selected = len(m.connections)
	}
}

func (m Model) selectedConnection() (api.Connection, bool) {
	if m.selected == 0 || m.selected > len(m.connections) {
		return api.Connection{}, false
	}
	return m.connections[m.selected-1], true
}

// visibleAssets는 선택된 연결의 자산만 반환. 전체 선택 시 모두 반환
func (m Model) visibleAssets() []api.Asset {
	if m.assets == nil {
		return nil
	}
	c, ok := m.selectedConnection()
	if !ok {
		return m.assets.Records
	}
	var out []api.Asset
	for _, a := range m.assets.Records {
		if a.Family == c.Family && a.Owner == c.Address {
			out = append(out, a)
		}
	}
	return out
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	b.WriteString(m.renderConnections())
	b.WriteString("\n")

	b.WriteString(m.renderAssets())
	b.WriteString("\n")

	if m.err != "" {
		b.WriteString(styles.ErrorStyle.Render("  ✗ " + m.err))
		b.WriteString("\n\n")
	}

	b.WriteString(m.logViewer.Render(m.width))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString(m.renderFullHelp())
	} else {
		b.WriteString(m.renderHelpBar())
	}

	return b.String()
}

func (m Model) renderHeader() string {
	title := styles.TitleStyle.Render(" SGA Wallet Portfolio ")

	var status string
	if !m.online {
		status = "오프라인"
	} else {
		status = fmt.Sprintf("연결: %d", len(m.connections))
		if m.assets != nil {
			status += fmt.Sprintf(" | 합계: %s USD", utils.FormatFloat(m.assets.TotalFiat, 2))
			if m.assets.LastPass > 0 {
				status += " | 갱신: " + time.Unix(m.assets.LastPass, 0).Format("15:04:05")
			}
		}
	}
	if m.refreshing {
		status = m.spinner.View() + " " + status
	}

	statusText := styles.MutedStyle.Render(status)

	// 오른쪽 정렬
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(statusText) - 2
	if gap < 1 {
		gap = 1
	}

	return title + strings.Repeat(" ", gap) + statusText
}

func (m Model) renderConnections() string {
	var b strings.Builder

	b.WriteString(styles.HeaderStyle.Render("CONNECTIONS"))
	b.WriteString("\n")

	header := fmt.Sprintf("%-10s %-46s %-15s %-12s", "Family", "Address", "Provider", "Label")
	b.WriteString(styles.TableHeaderStyle.Render(header))
	b.WriteString("\n")

	all := fmt.Sprintf("%-10s %-46s %-15s %-12s", "*", "(전체)", "", "")
	b.WriteString(m.row(0, all))

	for i, c := range m.connections {
		family := fmt.Sprintf("%-10s", c.Family)
		if i+1 != m.selected {
			family = styles.FamilyStyle(c.Family).Render(family)
		}
		row := fmt.Sprintf("%s %-46s %-15s %-12s",
			family, truncate(c.Address, 46), c.Provider, truncate(c.Label, 12))
		b.WriteString(m.row(i+1, row))
	}

	return b.String()
}

func (m Model) row(index int, text string) string {
	if index == m.selected {
		return styles.TableSelectedRowStyle.Render(text) + "\n"
	}
	return styles.TableRowStyle.Render(text) + "\n"
}

func (m Model) renderAssets() string {
	var b strings.Builder

	b.WriteString(styles.HeaderStyle.Render("ASSETS"))
	b.WriteString("\n")

	header := fmt.Sprintf("%-10s %-8s %18s %14s %14s %12s",
		"Network", "Symbol", "Amount", "Price", "Value", "P/L")
	b.WriteString(styles.TableHeaderStyle.Render(header))
	b.WriteString("\n")

	records := m.visibleAssets()
	if len(records) == 0 {
		b.WriteString(styles.MutedStyle.Render("  자산이 없습니다"))
		b.WriteString("\n")
		return b.String()
	}

	var total float64
	for _, a := range records {
		price := utils.FormatFloat(a.UnitPrice, 6)
		value := utils.FormatFloat(a.FiatValue, 2)
		if a.Unpriced {
			price, value = "n/a", "n/a"
		}
		pnl := styles.MutedStyle.Render(fmt.Sprintf("%12s", "-"))
		if a.ProfitOrLoss != nil {
			pnl = styles.PnLStyle(*a.ProfitOrLoss).Render(fmt.Sprintf("%12s", utils.FormatFloat(*a.ProfitOrLoss, 2)))
		}
		total += a.FiatValue

		b.WriteString(styles.TableRowStyle.Render(fmt.Sprintf("%-10s %-8s %18s %14s %14s %s",
			truncate(a.Network, 10), truncate(a.Symbol, 8),
			utils.FormatFloat(a.Amount, 8), price, value, pnl)))
		b.WriteString("\n")
	}

	b.WriteString(styles.SelectedStyle.Render(fmt.Sprintf("  소계: %s USD", utils.FormatFloat(total, 2))))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderHelpBar() string {
	keys := []struct{ key, desc string }{
		{"↑↓", "선택"},
		{"r", "재집계"},
		{"d", "연결 해제"},
		{"?", "도움말"},
		{"q", "종료"},
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts,
			styles.HelpKeyStyle.Render(k.key)+
				styles.HelpDescStyle.Render(" "+k.desc))
	}

	return styles.HelpBarStyle.Render(strings.Join(parts, "  │  "))
}

func (m Model) renderFullHelp() string {
	help := `
╭─────────────────────────────────────╮
│            도움말                    │
├─────────────────────────────────────┤
│  ↑/↓, j/k    연결 선택 이동          │
│  r           서버 재집계 요청        │
│  d           선택 연결 해제          │
│  ?           도움말 토글             │
│  q, Ctrl+C   종료                   │
╰─────────────────────────────────────╯`
	return styles.MutedStyle.Render(help)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
