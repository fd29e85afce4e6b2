package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/apps/shared"
	"github.com/phoenixacademy/resultsportal/core"
	emailsvc "github.com/phoenixacademy/resultsportal/services/email"
	"github.com/phoenixacademy/resultsportal/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := shared.NewLogger("ADMIN : ", conf)

	// set up store
	ctx, cancel := context.WithTimeout(context.Background(), conf.Mongo.ConnectTimeout)
	store, err := database.Open(ctx, conf, logger)
	cancel()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up store: %v", err), err)
	}

	core.ParseEmailTemplates(conf, logger)
	translator := shared.NewTranslator()

	// start CLI
	cli := commandLine{
		svcs:       shared.NewServices(store, conf, emailsvc.NewService(conf, logger), logger),
		validate:   shared.NewValidator(translator),
		translator: translator,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	_ = store.Close(context.Background())
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
			if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
				for fld, msg := range vErr.FieldsMap() {
					fmt.Fprintf(os.Stderr, "  %s: %s\n", fld, msg)
				}
			}
		}
		os.Exit(1)
	}
}
