package lakeclient

import "github.com/fyrsmithlabs/lakesync/internal/model"

// BuildACL converts a set of source read authorities into the lake's ACE
// list, per §3/§4.6: GROUP_EVERYONE becomes a single unsuffixed
// __Everyone__ user ACE; other GROUP_-prefixed authorities become Group
// ACEs suffixed with the external-identity tail; everything else becomes a
// User ACE with the same suffix. Grounded on MetadataIngester.buildSysAcl.
func BuildACL(authorities []string, repositoryID string) []model.ACE {
	suffix := "_#_" + repositoryID
	acl := make([]model.ACE, 0, len(authorities))

	for _, authority := range authorities {
		switch {
		case authority == model.GroupEveryone:
			acl = append(acl, userACE(model.EveryonePrincipal))
		case len(authority) > len(model.GroupPrefix) && authority[:len(model.GroupPrefix)] == model.GroupPrefix:
			acl = append(acl, groupACE(authority+suffix))
		default:
			acl = append(acl, userACE(authority+suffix))
		}
	}
	return acl
}

func userACE(id string) model.ACE {
	return model.ACE{
		Granted:    true,
		Permission: model.PermissionRead,
		User:       &model.User{ID: id},
	}
}

func groupACE(id string) model.ACE {
	return model.ACE{
		Granted:    true,
		Permission: model.PermissionRead,
		Group:      &model.Group{ID: id},
	}
}
