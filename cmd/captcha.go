// File: cmd/captcha.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkaelum/harrier/api/schemas"
)

var captchaProfileID string

var captchaCmd = &cobra.Command{
	Use:   "captcha",
	Short: "Inspect and resolve a pending CAPTCHA interrupt on a profile.",
}

var captchaGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the pending challenge (type, page URL, screenshot evidence).",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := schemas.CaptchaParams{ProfileID: captchaProfileID}
		var challenge schemas.CaptchaChallenge
		if err := callEngine(schemas.MethodGetCaptcha, params, &challenge); err != nil {
			return err
		}
		return printJSON(challenge)
	},
}

var captchaSolutionFile string

var captchaApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a solution from a JSON file to the pending challenge.",
	Long: `Apply dispatches a prepared solution against the page that raised the
challenge and reports the resulting state.

Solution file format:
  {"type": "text", "value": "xk4f9"}
  {"type": "recaptcha_v2"}
  {"type": "image_selection", "coordinates": [[112, 80], [243, 80]]}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var solution schemas.CaptchaSolution
		if err := readJSONFile(captchaSolutionFile, &solution); err != nil {
			return err
		}
		params := schemas.CaptchaParams{ProfileID: captchaProfileID, Solution: &solution}
		var result schemas.CaptchaApplyResult
		if err := callEngine(schemas.MethodApplyCaptchaSolution, params, &result); err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	captchaCmd.PersistentFlags().StringVar(&captchaProfileID, "profile", "", "browser profile id")
	captchaApplyCmd.Flags().StringVar(&captchaSolutionFile, "solution", "", "path to the JSON solution (required, - for stdin)")
	_ = captchaApplyCmd.MarkFlagRequired("solution")
	captchaCmd.AddCommand(captchaGetCmd, captchaApplyCmd)
	rootCmd.AddCommand(captchaCmd)
}
