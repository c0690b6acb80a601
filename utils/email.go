// utils/email.go
package utils

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// smtpDialer builds a gomail dialer from the SMTP environment variables.
func smtpDialer() (*gomail.Dialer, string, error) {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPortStr := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	fromEmail := os.Getenv("FROM_EMAIL")

	if smtpHost == "" || smtpPortStr == "" || smtpUser == "" || smtpPass == "" || fromEmail == "" {
		return nil, "", fmt.Errorf("missing SMTP configuration")
	}

	smtpPort, err := strconv.Atoi(smtpPortStr)
	if err != nil {
		return nil, "", fmt.Errorf("invalid SMTP port: %v", err)
	}

	return gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass), fromEmail, nil
}

// SendOTPEmail sends the verification code to a freshly onboarded
// customer.
func SendOTPEmail(email, name, otp string) error {
	subject := "Your Customer Verification Code"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Verify Your Email</h2>
			<p>Hello %s,</p>
			<p>Your verification code is:</p>
			<h3 style="background-color: #f0f0f0; padding: 10px; font-size: 24px; letter-spacing: 5px; text-align: center;">%s</h3>
			<p>This code will expire in 10 minutes.</p>
			<p>If you did not request this, please contact support.</p>
		</body>
		</html>
	`, name, otp)

	return sendMail(email, subject, body)
}

// SendAccountReadyEmail sends the welcome mail carrying the new
// 9-digit current account number after verification succeeds.
func SendAccountReadyEmail(email, name, accountNumber string) error {
	subject := "Welcome - Your New Account Details"
	body := fmt.Sprintf(`
		<html>
		<body>
			<p>Hello %s,</p>
			<p>Welcome! Your account has been successfully verified and opened.</p>
			<h3>Your new Current Account number is:</h3>
			<h1 style="color: #007bff; background-color: #f0f8ff; padding: 10px; border-radius: 5px; display: inline-block;">%s</h1>
			<p>You can now start using your account. Thank you for choosing us!</p>
		</body>
		</html>
	`, name, accountNumber)

	return sendMail(email, subject, body)
}

func sendMail(to, subject, body string) error {
	d, fromEmail, err := smtpDialer()
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", fromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}
