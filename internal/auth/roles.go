package auth

import "github.com/lifecompass/backend/pkg/types"

// Permission names one capability granted by a role
type Permission string

const (
	PermApplyToJobs            Permission = "can_apply_to_jobs"
	PermViewOwnApplications    Permission = "can_view_own_applications"
	PermWithdrawApplications   Permission = "can_withdraw_applications"
	PermChatWithRecruiters     Permission = "can_chat_with_recruiters"
	PermSaveJobs               Permission = "can_save_jobs"
	PermPostJobs               Permission = "can_post_jobs"
	PermEditOwnJobs            Permission = "can_edit_own_jobs"
	PermViewApplications       Permission = "can_view_applications"
	PermUpdateApplicationState Permission = "can_update_application_status"
	PermChatWithApplicants     Permission = "can_chat_with_applicants"
	PermRateApplications       Permission = "can_rate_applications"
	PermViewAnalytics          Permission = "can_view_analytics"
	PermManageUsers            Permission = "can_manage_users"
	PermManageAllJobs          Permission = "can_manage_all_jobs"
	PermViewSystemAnalytics    Permission = "can_view_system_analytics"
	PermModerateContent        Permission = "can_moderate_content"
)

var jobSeekerPermissions = []Permission{
	PermApplyToJobs,
	PermViewOwnApplications,
	PermWithdrawApplications,
	PermChatWithRecruiters,
	PermSaveJobs,
}

var recruiterPermissions = []Permission{
	PermPostJobs,
	PermEditOwnJobs,
	PermViewApplications,
	PermUpdateApplicationState,
	PermChatWithApplicants,
	PermRateApplications,
	PermViewAnalytics,
}

var adminOnlyPermissions = []Permission{
	PermManageUsers,
	PermManageAllJobs,
	PermViewSystemAnalytics,
	PermModerateContent,
}

// Permissions returns the full capability map of role; unknown roles get nothing
func Permissions(role types.Role) map[Permission]bool {
	all := make([]Permission, 0, len(jobSeekerPermissions)+len(recruiterPermissions)+len(adminOnlyPermissions))
	all = append(all, jobSeekerPermissions...)
	all = append(all, recruiterPermissions...)
	all = append(all, adminOnlyPermissions...)

	out := make(map[Permission]bool, len(all))
	for _, p := range all {
		out[p] = false
	}

	var granted []Permission
	switch role {
	case types.RoleJobSeeker:
		granted = jobSeekerPermissions
	case types.RoleRecruiter:
		granted = recruiterPermissions
	case types.RoleAdmin:
		granted = all
	}
	for _, p := range granted {
		out[p] = true
	}
	return out
}

// Can reports whether id holds permission p
func Can(id Identity, p Permission) bool {
	return Permissions(id.Role)[p]
}
