package cmd

import (
	"github.com/Fid-Deen/fiddeen-kiosk/internal/handler"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/inject"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

func newLambdaCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "lambda",
		Short:        "Serve the kiosk API behind API Gateway",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, _, err := setup(false)
			if err != nil {
				return err
			}

			injector := inject.Setup(ctx, cfg)
			adapter, err := do.Invoke[*handler.LambdaAdapter](injector)
			if err != nil {
				return err
			}
			lambda.StartWithOptions(adapter.Handle, lambda.WithContext(ctx), lambda.WithEnableSIGTERM(func() {
				_ = injector.Shutdown()
			}))
			return nil
		},
	}
}
