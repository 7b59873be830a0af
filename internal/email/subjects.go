package email

const subjectLeadNotificationFmt = "New qualified lead: %s"
