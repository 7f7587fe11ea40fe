// cmd/build-readme/main.go
package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"guild-jukebox/internal/command"
	"guild-jukebox/internal/docs"
	"guild-jukebox/pkg/cmd"
)

var categoryWeights = map[string]int{
	command.MusicCategory:       0,
	command.InformationCategory: 1,
}

func main() {
	prefix := flag.String("prefix", "!", "command prefix shown in the reference")
	tmplPath := flag.String("template", "README.md.tmpl", "README template")
	outPath := flag.String("out", "README.md", "output file")
	flag.Parse()

	// Only command metadata is rendered, so the commands get no services.
	registry := cmd.NewRegistry()
	command.Register(registry, &command.Deps{})

	if err := docs.UpdateReadme(registry, *prefix, categoryWeights, *tmplPath, *outPath); err != nil {
		logrus.WithError(err).Fatal("Failed to update README")
	}
	logrus.Infof("%s updated with current commands", *outPath)
}
