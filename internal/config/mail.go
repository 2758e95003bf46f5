package config

// MailConfig configures the SMTP relay used to mail receipts.  An empty
// Addr logs mail instead of sending it.
type MailConfig struct {
	Addr     string
	Username string
	Password string
	From     string
}

// LoadMailConfig reads SMTP_* variables.
func LoadMailConfig() MailConfig {
	return MailConfig{
		Addr:     getenv("SMTP_ADDR", ""),
		Username: getenv("SMTP_USERNAME", ""),
		Password: getenv("SMTP_PASSWORD", ""),
		From:     getenv("SMTP_FROM", "SmartPark <no-reply@smartpark.mx>"),
	}
}
