package scenes

import (
	"github.com/spf13/afero"

	scenegateway "github.com/YoshitsuguKoike/rehearsal/internal/adapter/gateway/scene"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/dto"
	scenemodel "github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
)

func validateFiles(fsys afero.Fs, paths []string) *dto.SceneCheckReport {
	report := &dto.SceneCheckReport{}
	for _, p := range paths {
		data, err := afero.ReadFile(fsys, p)
		if err != nil {
			addCheck(report, p, nil, err)
			continue
		}
		sc, err := scenegateway.Decode(data)
		addCheck(report, p, sc, err)
	}
	return report
}

func addCheck(report *dto.SceneCheckReport, document string, sc *scenemodel.Scene, err error) {
	check := dto.SceneCheckDTO{Document: document}
	if err != nil {
		check.Error = err.Error()
		report.Invalid++
	} else {
		check.Valid = true
		check.SceneID = sc.ID()
		check.Title = sc.Title()
		check.Lines = sc.Len()
	}
	report.Checks = append(report.Checks, check)
}
