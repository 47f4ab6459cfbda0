package kpi

// Snapshot is the full set of metrics derived from one record list.
// Exactly one of Email, LinkedIn or Connections is set, matching Shape.
type Snapshot struct {
	Dataset     string              `json:"dataset" yaml:"dataset"`
	Shape       Shape               `json:"shape" yaml:"shape"`
	RecordCount int                 `json:"recordCount" yaml:"recordCount"`
	Business    Business            `json:"business" yaml:"business"`
	Formulas    Formulas            `json:"formulas,omitempty" yaml:"formulas,omitempty"`
	Email       *EmailMetrics       `json:"email,omitempty" yaml:"email,omitempty"`
	LinkedIn    *LinkedInMetrics    `json:"linkedin,omitempty" yaml:"linkedin,omitempty"`
	Connections *ConnectionsMetrics `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// Funnel returns the funnel of whichever metric block is set.
func (s *Snapshot) Funnel() []FunnelStage {
	switch {
	case s == nil:
		return nil
	case s.Email != nil:
		return s.Email.Funnel
	case s.LinkedIn != nil:
		return s.LinkedIn.Funnel
	case s.Connections != nil:
		return s.Connections.Funnel
	}
	return nil
}

// Gauge is one named scalar of a snapshot, exported as a metric.
type Gauge struct {
	Name  string
	Value float64
}

// Gauges flattens the scalar counts, rates and business figures of the
// snapshot in a fixed order.
func (s *Snapshot) Gauges() []Gauge {
	switch {
	case s == nil:
		return nil
	case s.Email != nil:
		m := s.Email
		return []Gauge{
			{"total_leads", float64(m.TotalLeads)},
			{"emails_sent", float64(m.EmailsSent)},
			{"total_responses", float64(m.TotalResponses)},
			{"meetings_booked", float64(m.MeetingsBooked)},
			{"reply_rate", m.ReplyRate},
			{"meeting_rate", m.MeetingRate},
			{"response_to_meeting_conversion", m.ResponseToMeetingConversion},
			{"hours_saved", m.HoursSaved},
			{"money_saved", m.MoneySaved},
			{"projected_revenue", m.ProjectedRevenue},
		}
	case s.LinkedIn != nil:
		m := s.LinkedIn
		return []Gauge{
			{"total_prospects", float64(m.TotalProspects)},
			{"connections_sent", float64(m.ConnectionsSent)},
			{"responses_received", float64(m.ResponsesReceived)},
			{"contacted_prospects", float64(m.ContactedProspects)},
			{"final_prospects", float64(m.FinalProspects)},
			{"total_companies", float64(m.TotalCompanies)},
			{"total_sectors", float64(m.TotalSectors)},
			{"sent_share", m.SentShare},
			{"contacted_rate", m.ContactedRate},
			{"pending_rate", m.PendingRate},
			{"response_rate", m.ResponseRate},
			{"final_rate", m.FinalRate},
			{"follow_up_rate", m.FollowUpRate},
			{"avg_message_length", m.AvgMessageLength},
			{"time_saved_minutes", m.TimeSavedMinutes},
			{"manual_effort_saved", m.ManualEffortSaved},
			{"projected_revenue", m.ProjectedRevenue},
			{"roi", m.ROI},
		}
	case s.Connections != nil:
		m := s.Connections
		return []Gauge{
			{"total_invitations", float64(m.TotalInvitations)},
			{"accepted", float64(m.Accepted)},
			{"responded", float64(m.Responded)},
			{"errored", float64(m.Errored)},
			{"acceptance_rate", m.AcceptanceRate},
			{"response_rate", m.ResponseRate},
			{"error_rate", m.ErrorRate},
			{"avg_time_to_accept", m.AvgTimeToAccept},
			{"malformed_time_to_accept", float64(m.MalformedTimeToAccept)},
			{"malformed_follow_ups", float64(m.MalformedFollowUps)},
			{"total_follow_ups", float64(m.TotalFollowUps)},
			{"avg_follow_ups", m.AvgFollowUps},
			{"max_connections_count", m.MaxConnectionsCount},
			{"hours_saved", m.HoursSaved},
			{"money_saved", m.MoneySaved},
			{"projected_revenue", m.ProjectedRevenue},
			{"roi", m.ROI},
		}
	}
	return nil
}
