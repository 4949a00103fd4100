package email

import (
	"bytes"
	"html/template"
)

// The templates are embedded in the binary rather than loaded from
// disk so the server has no runtime file dependencies.

var resetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <p>Hi {{.UserName}},</p>
    <p>We received a request to reset the password for your account.</p>
    <p>
      <a href="{{.ResetLink}}"
         style="display:inline-block;padding:10px 20px;background:#2d6cdf;color:#fff;text-decoration:none;border-radius:4px;">
        Reset Password
      </a>
    </p>
    <p>This link expires in one hour. If you did not request a reset, you can ignore this email.</p>
  </body>
</html>`))

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <p>Hi {{.UserName}},</p>
    <p>Your account has been created successfully. Welcome aboard!</p>
  </body>
</html>`))

// ResetPasswordHTML renders the password-reset message body.
func ResetPasswordHTML(userName, resetLink string) (string, error) {
	var buf bytes.Buffer
	err := resetTmpl.Execute(&buf, struct {
		UserName  string
		ResetLink string
	}{userName, resetLink})
	return buf.String(), err
}

// WelcomeHTML renders the registration welcome message body.
func WelcomeHTML(userName string) (string, error) {
	var buf bytes.Buffer
	err := welcomeTmpl.Execute(&buf, struct{ UserName string }{userName})
	return buf.String(), err
}
