// Package report renders data source views as a terminal report.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/outreachkpi/internal/dashboard"
	"github.com/dbsmedya/outreachkpi/internal/kpi"
)

const (
	labelWidth = 34
	barWidth   = 24
	nameWidth  = 28
)

var (
	headerStyle  = color.New(color.FgCyan, color.OpBold)
	sectionStyle = color.New(color.FgYellow, color.OpBold)
	valueStyle   = color.New(color.FgWhite, color.OpBold)
	barStyle     = color.New(color.FgGreen)
	warnStyle    = color.New(color.FgYellow)
	errorStyle   = color.New(color.FgRed, color.OpBold)
)

// Printer writes reports to an io.Writer.
type Printer struct {
	w       io.Writer
	colored bool
}

// NewPrinter creates a printer. colored enables ANSI styling.
func NewPrinter(w io.Writer, colored bool) *Printer {
	return &Printer{w: w, colored: colored}
}

func (p *Printer) paint(style color.Style, s string) string {
	if !p.colored {
		return s
	}
	return style.Sprint(s)
}

// Render writes the full report of one view.
func (p *Printer) Render(v dashboard.View) {
	p.header("%s (%s)", v.Title, v.Shape)
	p.row("Fuente", v.Source)
	p.row("Registros", fmt.Sprintf("%d", v.Records))
	if v.LastUpdate != nil {
		p.row("Actualizado", v.LastUpdate.Format(time.RFC3339))
	}
	p.row("Duración de carga", fmt.Sprintf("%.2fs", v.LoadDuration))
	if v.LastError != "" {
		fmt.Fprintf(p.w, "  %s %s\n", p.paint(errorStyle, "Error:"), v.LastError)
	}

	switch v.State {
	case dashboard.StateLoading:
		fmt.Fprintf(p.w, "\n  %s\n", p.paint(warnStyle, "Cargando..."))
		return
	case dashboard.StateNoData:
		fmt.Fprintf(p.w, "\n  %s\n", p.paint(warnStyle, "Sin datos"))
		return
	}

	snap := v.Snapshot
	switch {
	case snap.Email != nil:
		p.renderEmail(snap.Email)
	case snap.LinkedIn != nil:
		p.renderLinkedIn(snap.LinkedIn)
	case snap.Connections != nil:
		p.renderConnections(snap.Connections)
	}

	if len(snap.Formulas) > 0 {
		p.section("Fórmulas")
		for _, metric := range sortedKeys(snap.Formulas) {
			p.row(metric, snap.Formulas[metric])
		}
	}

	p.section("Embudo")
	p.funnel(snap.Funnel())
}

func (p *Printer) renderEmail(m *kpi.EmailMetrics) {
	p.section("Resumen")
	p.row("Total de leads", count(m.TotalLeads))
	p.row("Emails enviados", count(m.EmailsSent))
	p.row("Respuestas", count(m.TotalResponses))
	p.row("Reuniones agendadas", count(m.MeetingsBooked))
	p.row("Tasa de respuesta", percent(m.ReplyRate))
	p.row("Tasa de reuniones", percent(m.MeetingRate))
	p.row("Conversión respuesta a reunión", percent(m.ResponseToMeetingConversion))

	p.section("Impacto")
	p.row("Horas ahorradas", fmt.Sprintf("%.1f h", m.HoursSaved))
	p.row("Dinero ahorrado", money(m.MoneySaved))
	p.row("Ingresos proyectados", money(m.ProjectedRevenue))

	p.section("Industrias")
	p.buckets(m.IndustriesData)
	p.section("Puestos con respuesta")
	p.buckets(m.JobTitleResponses)
}

func (p *Printer) renderLinkedIn(m *kpi.LinkedInMetrics) {
	p.section("Resumen")
	p.row("Total de prospectos", count(m.TotalProspects))
	p.row("Contactados", count(m.ContactedProspects))
	p.row("Conexiones enviadas", count(m.ConnectionsSent))
	p.row("Respuestas recibidas", count(m.ResponsesReceived))
	p.row("Finalizados", count(m.FinalProspects))
	p.row("Empresas", count(m.TotalCompanies))
	p.row("Sectores", count(m.TotalSectors))

	p.section("Tasas")
	p.row("Envíos sobre total", percent(m.SentShare))
	p.row("Contactados", percent(m.ContactedRate))
	p.row("Pendientes", percent(m.PendingRate))
	p.row("Respuesta", percent(m.ResponseRate))
	p.row("Finalizados", percent(m.FinalRate))
	p.row("Seguimiento", percent(m.FollowUpRate))
	p.row("Largo promedio de mensaje", fmt.Sprintf("%.0f caracteres", m.AvgMessageLength))

	p.section("Impacto")
	p.row("Tiempo ahorrado", fmt.Sprintf("%.0f min", m.TimeSavedMinutes))
	p.row("Esfuerzo manual ahorrado", money(m.ManualEffortSaved))
	p.row("Ingresos proyectados", money(m.ProjectedRevenue))
	p.row("ROI", percent(m.ROI))

	p.section("Sectores")
	p.buckets(m.SectorsData)

	if len(m.RecentActivity) > 0 {
		p.section("Actividad reciente")
		for _, a := range m.RecentActivity {
			p.row(a.Name, fmt.Sprintf("mensaje=%s seguimiento=%s final=%s",
				yesNo(a.HasMessage), yesNo(a.HasFollowUp), yesNo(a.IsFinal)))
		}
	}
}

func (p *Printer) renderConnections(m *kpi.ConnectionsMetrics) {
	p.section("Resumen")
	p.row("Invitaciones", count(m.TotalInvitations))
	p.row("Aceptadas", count(m.Accepted))
	p.row("Respuestas", count(m.Responded))
	p.row("Errores", count(m.Errored))
	p.row("Tasa de aceptación", percent(m.AcceptanceRate))
	p.row("Tasa de respuesta", percent(m.ResponseRate))
	p.row("Tasa de error", percent(m.ErrorRate))

	p.section("Tiempos y seguimiento")
	p.row("Tiempo promedio de aceptación", fmt.Sprintf("%.2f (%d muestras)", m.AvgTimeToAccept, m.TimeToAcceptSamples))
	if m.MalformedTimeToAccept > 0 {
		p.row("Valores inválidos de aceptación", p.paint(warnStyle, count(m.MalformedTimeToAccept)))
	}
	p.row("Seguimientos totales", count(m.TotalFollowUps))
	p.row("Seguimientos promedio", fmt.Sprintf("%.2f", m.AvgFollowUps))
	p.row("Máximo de conexiones", fmt.Sprintf("%.0f", m.MaxConnectionsCount))

	p.section("Impacto")
	p.row("Horas ahorradas", fmt.Sprintf("%.1f h", m.HoursSaved))
	p.row("Dinero ahorrado", money(m.MoneySaved))
	p.row("Ingresos proyectados", money(m.ProjectedRevenue))
	p.row("ROI", percent(m.ROI))
}

func (p *Printer) header(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := runewidth.StringWidth(title) + 4
	fmt.Fprintln(p.w, strings.Repeat("=", width))
	fmt.Fprintf(p.w, "  %s\n", p.paint(headerStyle, title))
	fmt.Fprintln(p.w, strings.Repeat("=", width))
}

func (p *Printer) section(title string) {
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "[%s]\n", p.paint(sectionStyle, title))
	fmt.Fprintln(p.w, strings.Repeat("-", runewidth.StringWidth(title)+2))
}

func (p *Printer) row(label, value string) {
	fmt.Fprintf(p.w, "  %s %s\n", pad(label, labelWidth), p.paint(valueStyle, value))
}

func (p *Printer) buckets(buckets []kpi.Bucket) {
	if len(buckets) == 0 {
		fmt.Fprintln(p.w, "  (sin datos)")
		return
	}
	max := buckets[0].Value
	for _, b := range buckets {
		fmt.Fprintf(p.w, "  %s %s %d\n", pad(b.Name, nameWidth), p.paint(barStyle, bar(b.Value, max)), b.Value)
	}
}

func (p *Printer) funnel(stages []kpi.FunnelStage) {
	for _, s := range stages {
		fmt.Fprintf(p.w, "  %s %s %d (%.1f%%)\n",
			pad(s.Name, nameWidth),
			p.paint(barStyle, bar(int(s.Percentage+0.5), 100)),
			s.Value, s.Percentage)
	}
}

// pad truncates or right-pads s to width terminal cells.
func pad(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

func bar(value, max int) string {
	filled := 0
	if max > 0 && value > 0 {
		filled = value * barWidth / max
		if filled == 0 {
			filled = 1
		}
		if filled > barWidth {
			filled = barWidth
		}
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

func count(n int) string { return fmt.Sprintf("%d", n) }

func percent(v float64) string { return fmt.Sprintf("%.1f%%", v) }

func money(v float64) string { return fmt.Sprintf("$%.2f", v) }

func yesNo(b bool) string {
	if b {
		return "sí"
	}
	return "no"
}

func sortedKeys(f kpi.Formulas) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
