// Package alerts implements threshold rules over saved calculations and
// webhook delivery. Rules such as "hr > 120" or "mbp < 60" are evaluated
// against every new record; webhooks are delivered to Teams, Slack, or
// generic HTTP targets.
package alerts
