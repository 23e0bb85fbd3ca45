package toolchain

import "ccdispatch/internal/arg"

type msvcToolchain struct {
	path string
	id   string
}

func newMSVCToolchain(path string) (Toolchain, error) {
	id, err := msvcIdentifier(path)
	if err != nil {
		return nil, err
	}
	return &msvcToolchain{path: path, id: id}, nil
}

// msvcIdentifier builds `"cl <product-version> <timestamp><image-size>"`
// (§4.9) from the two independent halves: the VERSIONINFO resource (Windows
// only) and the PE header (portable).
func msvcIdentifier(path string) (string, error) {
	version, ok := productVersion(path)
	if !ok {
		return "", &NotFoundError{Program: path}
	}
	imageID, err := peImageID(path)
	if err != nil {
		return "", err
	}
	return "cl " + version + " " + imageID, nil
}

func (t *msvcToolchain) Kind() Kind                 { return KindMSVC }
func (t *msvcToolchain) Path() string               { return t.path }
func (t *msvcToolchain) ID() string                 { return t.id }
func (t *msvcToolchain) Classifier() arg.Classifier { return arg.NewMSVCClassifier() }
