package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/winbeat/assist/internal/backend"
	"github.com/winbeat/assist/internal/observability"
	"github.com/winbeat/assist/internal/validate"
	"github.com/winbeat/assist/model"
)

// expiryWindow bounds the "expiring soon" analysis to registrations whose
// expiry falls within the next 90 days.
const expiryWindow = 90 * 24 * time.Hour

const dataUnavailableMessage = "I couldn't fetch the data needed for that " +
	"analysis. Please check your access and try again."

// handleAnalysis dispatches data-analysis questions. Each branch fetches
// from the backend, computes locally, and, when the generative service is
// configured, asks it to narrate the computed rows. Backend failures yield
// an availability message, never a raw error.
func handleAnalysis(ctx context.Context, in *Interpreter, query string, user *model.User) model.AssistantResponse {
	q := strings.ToLower(query)

	switch {
	case strings.Contains(q, "abn"):
		return in.analyzeABNs(ctx, query, user)
	case strings.Contains(q, "expir"):
		return in.analyzeExpiring(ctx, query, user)
	case strings.Contains(q, "admin") || strings.Contains(q, "security"):
		return in.analyzeUsers(ctx, query, user)
	case strings.Contains(q, "lin"):
		return in.analyzeMissingLINs(ctx, query, user)
	default:
		return model.AssistantResponse{
			Message: "I can check for invalid ABNs, registrations expiring soon, missing LINs, or admin users. Which would you like?",
			Source:  model.SourceRuleBased,
		}
	}
}

// analyzeABNs flags clients whose ABN is absent or fails the checksum.
func (in *Interpreter) analyzeABNs(ctx context.Context, query string, user *model.User) model.AssistantResponse {
	clients, err := in.backend.Clients(ctx)
	if err != nil {
		return in.analysisUnavailable(ctx, err)
	}

	var flagged []map[string]any
	for _, c := range clients {
		issue := ""
		switch {
		case strings.TrimSpace(c.ABN) == "":
			issue = "Missing ABN"
		case !validate.ABN(c.ABN):
			issue = "Invalid format"
		}
		if issue == "" {
			continue
		}
		flagged = append(flagged, map[string]any{
			"name":  c.Name,
			"code":  c.Code,
			"abn":   c.ABN,
			"issue": issue,
		})
	}

	if len(flagged) == 0 {
		return model.AssistantResponse{
			Message: "All clients have valid ABNs.",
			Source:  model.SourceRuleBased,
		}
	}

	// The model only needs a sample to narrate; the response keeps the
	// full list.
	sample := flagged
	if len(sample) > 5 {
		sample = sample[:5]
	}
	message := fmt.Sprintf("Found %d clients with missing or invalid ABNs.", len(flagged))
	return in.narrate(ctx, query, user, message, flagged, map[string]any{
		"flaggedClients": sample,
		"totalClients":   len(clients),
	})
}

// analyzeExpiring lists registrations whose expiry falls inside the window.
func (in *Interpreter) analyzeExpiring(ctx context.Context, query string, user *model.User) model.AssistantResponse {
	regs, err := in.backend.SearchRegistrations(ctx, "", "", "")
	if err != nil {
		return in.analysisUnavailable(ctx, err)
	}

	now := in.now()
	cutoff := now.Add(expiryWindow)
	var expiring []map[string]any
	for _, r := range regs {
		expiry, ok := r.ExpiryTime()
		if !ok || expiry.Before(now) || expiry.After(cutoff) {
			continue
		}
		days := int(expiry.Sub(now).Hours()/24 + 0.999)
		expiring = append(expiring, map[string]any{
			"companyName":     r.CompanyName,
			"expiryDate":      r.ExpiryDate,
			"daysUntilExpiry": days,
		})
	}
	sort.Slice(expiring, func(i, j int) bool {
		return expiring[i]["daysUntilExpiry"].(int) < expiring[j]["daysUntilExpiry"].(int)
	})

	if len(expiring) == 0 {
		return model.AssistantResponse{
			Message: "No registrations expire in the next 90 days.",
			Source:  model.SourceRuleBased,
		}
	}

	message := fmt.Sprintf("%d registrations expire in the next 90 days.", len(expiring))
	return in.narrate(ctx, query, user, message, expiring, map[string]any{
		"expiringRegistrations": expiring,
	})
}

// analyzeUsers summarizes admin-tier users. Admin only; the permission
// check runs before any backend call.
func (in *Interpreter) analyzeUsers(ctx context.Context, query string, user *model.User) model.AssistantResponse {
	if !user.IsAdmin() {
		return model.AssistantResponse{
			Message: "You don't have permission to view user data. This requires admin access.",
			Source:  model.SourceRuleBased,
		}
	}

	users, err := in.backend.Users(ctx)
	if err != nil {
		return in.analysisUnavailable(ctx, err)
	}

	q := strings.ToLower(query)
	if containsAny(q, "how many", "count", "total", "breakdown") {
		return securityTally(users)
	}

	var admins []map[string]any
	for _, u := range users {
		if u.Security < model.SecurityAdmin {
			continue
		}
		tier := "Super Admin"
		if u.Security == model.SecurityAdmin {
			tier = "Admin"
		}
		admins = append(admins, map[string]any{
			"userCode": u.UserCode,
			"tier":     tier,
			"branch":   model.BranchName(u.BranchID),
		})
	}

	if len(admins) == 0 {
		return model.AssistantResponse{
			Message: "No admin users found.",
			Source:  model.SourceRuleBased,
		}
	}

	message := fmt.Sprintf("Found %d admin users out of %d total.", len(admins), len(users))
	return in.narrate(ctx, query, user, message, admins, map[string]any{
		"adminUsers": admins,
		"totalUsers": len(users),
	})
}

// securityTally counts users per security level.
func securityTally(users []backend.UserRecord) model.AssistantResponse {
	var viewers, editors, admins int
	for _, u := range users {
		switch {
		case u.Security >= model.SecurityAdmin:
			admins++
		case u.Security == model.SecurityEditor:
			editors++
		default:
			viewers++
		}
	}
	return model.AssistantResponse{
		Message: fmt.Sprintf("User security breakdown: %d viewers, %d editors, %d admins.", viewers, editors, admins),
		Source:  model.SourceRuleBased,
		Data: []map[string]any{
			{"tier": "Viewer", "count": viewers},
			{"tier": "Editor", "count": editors},
			{"tier": "Admin", "count": admins},
		},
	}
}

// analyzeMissingLINs flags registrations with no LIN recorded.
func (in *Interpreter) analyzeMissingLINs(ctx context.Context, query string, user *model.User) model.AssistantResponse {
	regs, err := in.backend.SearchRegistrations(ctx, "", "", "")
	if err != nil {
		return in.analysisUnavailable(ctx, err)
	}

	var missing []map[string]any
	for _, r := range regs {
		if strings.TrimSpace(r.LIN) != "" {
			continue
		}
		missing = append(missing, map[string]any{
			"companyName": r.CompanyName,
			"abn":         r.CompanyABN,
		})
	}

	if len(missing) == 0 {
		return model.AssistantResponse{
			Message: "All registrations have a LIN recorded.",
			Source:  model.SourceRuleBased,
		}
	}

	message := fmt.Sprintf("Found %d registrations with no LIN recorded.", len(missing))
	return in.narrate(ctx, query, user, message, missing, map[string]any{
		"missingLIN": missing,
	})
}

// narrate asks the generative service to phrase computed analysis rows for
// the user. The computed rows always ride along in Data so the answer is
// usable when generation is unavailable or fails.
func (in *Interpreter) narrate(ctx context.Context, query string, user *model.User, message string, data []map[string]any, contextData map[string]any) model.AssistantResponse {
	if in.gemini.IsConfigured() {
		reply := in.gemini.GenerateContextual(ctx, query, user, in.registry.PageContext(), contextData)
		if !reply.Success {
			reply = in.gemini.Generate(ctx, query, user, in.registry.PageContext())
		}
		if reply.Success {
			return model.AssistantResponse{
				Message: reply.Message,
				Source:  reply.Source,
				Data:    data,
			}
		}
	}
	return model.AssistantResponse{
		Message: message,
		Source:  model.SourceRuleBased,
		Data:    data,
	}
}

func (in *Interpreter) analysisUnavailable(ctx context.Context, err error) model.AssistantResponse {
	observability.RequestLogger(ctx, in.logger).Warn("analysis backend fetch failed", zap.Error(err))
	return model.AssistantResponse{
		Message: dataUnavailableMessage,
		Source:  model.SourceError,
	}
}

// handleCount answers tally questions with a single backend call.
func handleCount(ctx context.Context, in *Interpreter, query string, user *model.User) model.AssistantResponse {
	q := strings.ToLower(query)

	switch {
	case strings.Contains(q, "client"):
		clients, err := in.backend.Clients(ctx)
		if err != nil {
			return in.analysisUnavailable(ctx, err)
		}
		return model.AssistantResponse{
			Message: fmt.Sprintf("There are %d clients.", len(clients)),
			Source:  model.SourceRuleBased,
		}
	case strings.Contains(q, "registration"):
		regs, err := in.backend.SearchRegistrations(ctx, "", "", "")
		if err != nil {
			return in.analysisUnavailable(ctx, err)
		}
		return model.AssistantResponse{
			Message: fmt.Sprintf("There are %d registrations.", len(regs)),
			Source:  model.SourceRuleBased,
		}
	case strings.Contains(q, "user"):
		if !user.IsAdmin() {
			return model.AssistantResponse{
				Message: "You don't have permission to view user data. This requires admin access.",
				Source:  model.SourceRuleBased,
			}
		}
		users, err := in.backend.Users(ctx)
		if err != nil {
			return in.analysisUnavailable(ctx, err)
		}
		return model.AssistantResponse{
			Message: fmt.Sprintf("There are %d users.", len(users)),
			Source:  model.SourceRuleBased,
		}
	default:
		return model.AssistantResponse{
			Message: "I can count clients, registrations, or users. Which would you like?",
			Source:  model.SourceRuleBased,
		}
	}
}
