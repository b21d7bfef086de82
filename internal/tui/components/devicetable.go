package components

import (
	"fmt"

	"github.com/allbin/serialmagic/internal/tui/styles"
	"github.com/allbin/serialmagic/probe"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/evertras/bubble-table/table"
)

const (
	columnKeyID     = "id"
	columnKeyUSB    = "usb"
	columnKeyName   = "name"
	columnKeyDriver = "driver"
	columnKeyPort   = "port"
	columnKeyPath   = "path"
)

// DeviceTable lists (device, port) rows. The row index matches the index of
// the item it was built from.
type DeviceTable struct {
	table table.Model
}

func NewDeviceTable(width, height int) *DeviceTable {
	columns := []table.Column{
		table.NewColumn(columnKeyID, "ID", 6),
		table.NewColumn(columnKeyUSB, "VID:PID", 10),
		table.NewFlexColumn(columnKeyName, "Device", 1),
		table.NewColumn(columnKeyDriver, "Driver", 14),
		table.NewColumn(columnKeyPort, "Port", 5),
		table.NewColumn(columnKeyPath, "TTY", 14),
	}

	t := table.New(columns).
		Focused(true).
		WithBaseStyle(styles.TableBaseStyle).
		HeaderStyle(styles.TableHeaderStyle).
		HighlightStyle(styles.TableHighlightStyle).
		WithMissingDataIndicatorStyled(table.StyledCell{
			Style: styles.NoDriverStyle,
			Data:  "-",
		})

	dt := &DeviceTable{table: t}
	dt.SetSize(width, height)
	return dt
}

func (dt *DeviceTable) SetSize(width, height int) {
	// header and borders take four lines
	pageSize := height - 4
	if pageSize < 1 {
		pageSize = 1
	}
	dt.table = dt.table.WithTargetWidth(width).WithPageSize(pageSize)
}

// SetItems replaces the rows, keeping the highlighted index in range
func (dt *DeviceTable) SetItems(items []probe.ListItem) {
	rows := make([]table.Row, len(items))
	for i, item := range items {
		rows[i] = itemRow(item)
	}

	highlighted := dt.table.GetHighlightedRowIndex()
	if highlighted >= len(rows) {
		highlighted = len(rows) - 1
	}
	if highlighted < 0 {
		highlighted = 0
	}
	dt.table = dt.table.WithRows(rows).WithHighlightedRow(highlighted)
}

func itemRow(item probe.ListItem) table.Row {
	data := table.RowData{
		columnKeyID:   item.Device.ID,
		columnKeyUSB:  item.Device.USBID(),
		columnKeyName: item.Device.DisplayName(),
		columnKeyPort: item.Port,
	}
	if item.Driver != nil {
		data[columnKeyDriver] = item.Driver.Family.String()
		if path := item.Path(); path != "" {
			data[columnKeyPath] = path
		}
	} else {
		data[columnKeyDriver] = table.NewStyledCell("no driver", styles.NoDriverStyle)
	}
	return table.NewRow(data)
}

// Highlighted is the index of the highlighted row
func (dt *DeviceTable) Highlighted() int {
	return dt.table.GetHighlightedRowIndex()
}

func (dt *DeviceTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	dt.table, cmd = dt.table.Update(msg)
	return cmd
}

func (dt *DeviceTable) View() string {
	return dt.table.View()
}

// EmptyView is shown instead of the table when nothing is attached
func EmptyView(err error) string {
	if err != nil {
		return styles.ErrorStyle.Render(fmt.Sprintf("no devices: %v", err))
	}
	return styles.NoDriverStyle.Render("no USB serial devices attached, press r to refresh")
}
