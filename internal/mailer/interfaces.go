// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package mailer

import "context"

type MailerInterface interface {
	// SendInvitation delivers the invitation email with the acceptance link.
	SendInvitation(ctx context.Context, email, tenantName, inviterName, link string) error
}
