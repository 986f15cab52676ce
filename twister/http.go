package twister

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/idiap/twister/generichttp"
	"github.com/idiap/twister/generichttp/ascii"
	"github.com/idiap/twister/generichttp/motion"
	"github.com/idiap/twister/util"
)

var errStepsClamped = errors.New("requested steps violate software limits, aborted")

// HTTPTwister wraps a Twister in an HTTP interface
type HTTPTwister struct {
	motion.HTTPMotionController

	// Twister is the underlying turntable
	Twister *Twister
}

// NewHTTPTwister returns a new HTTP wrapper with the route table pre-configured
func NewHTTPTwister(t *Twister) HTTPTwister {
	h := HTTPTwister{HTTPMotionController: motion.NewHTTPMotionController(t), Twister: t}
	rt := h.RouteTable
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/firmware/name"}] = generichttp.GetString(func() (string, error) {
		return t.Identity().Name, nil
	})
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/firmware/version"}] = generichttp.GetString(func() (string, error) {
		return t.Identity().Version, nil
	})
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/stepsize"}] = generichttp.GetFloat(func() (float64, error) {
		return t.Config().StepSize, nil
	})
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/steps"}] = generichttp.GetInt(func() (int, error) {
		return t.Steps(), nil
	})
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/steps"}] = generichttp.SetInt(func(steps int) error {
		_, err := t.RotateSteps(steps)
		return err
	})
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/dummy"}] = generichttp.GetBool(func() (bool, error) {
		return t.Dummy(), nil
	})
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/reset"}] = generichttp.Do(t.ResetDevice)
	ascii.InjectRawComm(h, t)
	return h
}

// StepLimitMiddleware imposes the software limits of Axis on raw step moves,
// which motion.LimitMiddleware does not see
type StepLimitMiddleware struct {
	// Limits contains the server imposed limits, keyed by axis
	Limits map[string]util.Limiter

	// Twister is queried for the current angle and step size
	Twister *Twister
}

// Check refuses a POST to /steps with StatusBadRequest if the angle after the
// move would be outside the limits, otherwise flows control to the next handler
func (l *StepLimitMiddleware) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/steps") {
			next.ServeHTTP(w, r)
			return
		}
		limiter, ok := l.Limits[Axis]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		bodyContent, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewBuffer(bodyContent))
		i := generichttp.IntT{}
		err = json.NewDecoder(bytes.NewReader(bodyContent)).Decode(&i)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cmd := l.Twister.Angle() + float64(i.Int)*l.Twister.Config().StepSize
		if !limiter.Check(cmd) {
			http.Error(w, errStepsClamped.Error(), http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}
