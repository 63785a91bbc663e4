package live

import (
	"net/url"
	"strings"
)

// NormalizeUniqueID принимает имя пользователя в любом виде, в котором его
// копируют из браузера: "alice", "@alice", "https://host/@alice/live".
func NormalizeUniqueID(s string) (string, error) {
	in := s
	s = strings.TrimSpace(s)

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", &InvalidUniqueIDError{Input: in}
		}
		s = u.Path
	}

	// из пути нужен сегмент с "@", а без него — первый
	segs := strings.Split(strings.Trim(s, "/"), "/")
	s = segs[0]
	for _, seg := range segs {
		if strings.HasPrefix(seg, "@") {
			s = seg
			break
		}
	}
	s = strings.TrimPrefix(s, "@")
	s = strings.TrimSpace(s)

	if s == "" || strings.ContainsAny(s, " \t?#") {
		return "", &InvalidUniqueIDError{Input: in}
	}
	return s, nil
}
